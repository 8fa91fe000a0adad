package crypto

import (
	"golang.org/x/crypto/blake2b"
)

// Hash returns the BLAKE2b-256 hash of data. The key is optional, and is used
// for domain separation of hashes generated for different purposes.
func Hash(key string, data []byte) []byte {
	h, err := blake2b.New256([]byte(key))
	if err != nil {
		// Only reachable with a key longer than 64 bytes.
		panic(err)
	}
	h.Write(data)

	return h.Sum(nil)
}
