package context

import (
	"fmt"
	"runtime/debug"
)

// VersionInfo contains the application version metadata extracted from the
// build info embedded in the binary.
type VersionInfo struct {
	Semantic string
	Commit   string
	Dirty    bool
}

// GetVersion returns the application version metadata.
func GetVersion() (*VersionInfo, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, fmt.Errorf("failed reading build info")
	}

	v := &VersionInfo{Semantic: info.Main.Version}
	if v.Semantic == "" || v.Semantic == "(devel)" {
		v.Semantic = "devel"
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Commit = setting.Value
		case "vcs.modified":
			v.Dirty = setting.Value == "true"
		}
	}

	return v, nil
}

// String returns the version as a human-readable string.
func (v *VersionInfo) String() string {
	out := v.Semantic
	if v.Commit != "" {
		commit := v.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		out = fmt.Sprintf("%s (%s)", out, commit)
	}
	if v.Dirty {
		out = fmt.Sprintf("%s (modified)", out)
	}

	return out
}
