// Package services defines the error taxonomy and request context helpers
// shared by the clip-set core and its HTTP and CLI front ends.
//
// Key responsibilities:
//   - Structured error markers (invalid range, source unavailable, decode
//     failure, not found, ...) plus the Wrap helper that attaches component
//     and operation context while keeping errors.Is classification intact.
//   - HTTPStatus, the single place failures are translated into transport
//     status codes.
//   - Context helpers that stamp request and clip-set identifiers for logging.
package services
