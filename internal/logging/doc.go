// Package logging assembles structured slog loggers and formatting helpers used
// across audioserver components.
//
// Loggers write a compact console format or JSON lines. Server loggers also
// fan records out to a per-run JSON log file, and old run logs are pruned by
// age. Context helpers tag log lines with request and clip-set identifiers.
package logging
