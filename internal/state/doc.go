// Package state provides SQLite-backed sync state for boardsync jobs.
//
// Two tables:
//   - card_mappings: source record → destination card, one row per source
//     record per job (UNIQUE constraint). This is what makes re-runs and
//     overlapping runs idempotent: a create is only planned for a source
//     record with no mapping, and writing the mapping twice is a no-op
//     upsert.
//   - runs: run history, one row per run token, for `boardsync history`.
//
// Database configuration follows the usual single-writer SQLite setup:
// WAL mode, synchronous=NORMAL, busy_timeout=5000, foreign_keys=ON.
package state
