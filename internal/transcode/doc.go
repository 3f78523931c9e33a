// Package transcode turns a clip into a standalone audio fragment.
//
// The source file's raw bytes are decoded to interleaved signed 16-bit PCM,
// the clip's frame window [start*rate/1000, stop*rate/1000) is cut out, and
// the frames are wrapped in a canonical 44-byte RIFF/WAVE header. The source
// sample rate and channel count are kept.
//
// WAV sources decode in-process with go-audio/wav and MP3 sources with
// go-mp3. Everything else, and any source the in-process decoders reject, is
// piped through ffmpeg when one is configured. Output bytes depend only on the
// clip and the source bytes.
package transcode
