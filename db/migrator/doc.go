// Package migrator applies forward-only database schema migrations.
//
// Features:
// - Loads SQL migration files with structured naming (`{id}-{name}.sql`) from a filesystem
// - Tracks applied migrations in a dedicated bookkeeping table, including content checksums
// - Applies pending migrations exactly once, in ascending ID order, each in its own transaction
// - Detects content drift of already applied migrations and halts instead of reapplying
// - Serializes concurrent runs against the same target with an advisory lock
package migrator
