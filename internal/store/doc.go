// Package store persists audio files, clips, and clip sets in SQLite.
//
// The Store owns the database connection, schema initialization, and the
// get-or-insert primitives the clip and set caches build on. Clip identity is
// enforced by a UNIQUE (file_id, start_ms, stop_ms) constraint and set
// identity by a UNIQUE membership_key, so concurrent inserts from any
// connection converge on a single row: callers insert with ON CONFLICT DO
// NOTHING and re-select the winner.
//
// Lookups that find nothing return a nil record and a nil error; callers
// decide whether absence is a failure.
//
// Schema changes bump schemaVersion in schema.go; an existing database with a
// different version is refused rather than migrated.
package store
