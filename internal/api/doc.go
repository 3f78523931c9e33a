// Package api defines wire-format types and converters for the HTTP API and
// the CLI's JSON output. It translates catalog records into transport-friendly
// DTOs so clients never couple to internal types.
//
// # Key Types
//
// File: an ingested audio file with its duration in seconds.
//
// Clip: one clip with offsets rendered in the canonical two-decimal format
// alongside the integer millisecond values.
//
// ClipSet: a set with its members in stored order and the archive file name.
//
// Status: server state, catalog counts, dependencies and preflight results.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Offsets appear both as strings (for display and file names) and as integer
// milliseconds (for arithmetic), never as floats.
package api
