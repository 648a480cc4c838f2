package storage

// Package storage is the persistence adapter for jobpilot.
//
// Two logical scopes mirror the original split:
//   - synced:  autopilot preferences (whole-object replace)
//   - local:   daily application ledger + applied-job keys (append-only)
