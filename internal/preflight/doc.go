// Package preflight provides readiness checks for the directories and
// external binaries audioserver depends on.
//
// These checks run in two contexts:
//   - The server calls RunAll at startup and refuses to serve when a storage
//     directory is unusable.
//   - The CLI "audioserver status" command prints every result, including the
//     optional ffmpeg and ffprobe binaries.
package preflight
