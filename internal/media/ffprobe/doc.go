// Package ffprobe wraps the ffprobe CLI for duration and stream discovery of
// audio formats the in-process decoders do not understand.
package ffprobe
