package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"audioserver/internal/textutil"
)

// SourceFile is an immutable audio asset as recorded at ingestion.
type SourceFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Duration  float64   `json:"duration"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// DurationMs returns the file duration in whole milliseconds.
func (f SourceFile) DurationMs() int64 {
	return Millis(f.Duration)
}

// FileFilter narrows file listings. Zero values match everything.
type FileFilter struct {
	Name        string  `json:"name,omitempty"`
	MaxDuration float64 `json:"max_duration,omitempty"`
}

// Range is a half-open [StartMs, StopMs) interval in milliseconds.
type Range struct {
	StartMs int64 `json:"start_ms"`
	StopMs  int64 `json:"stop_ms"`
}

// Start returns the range start in seconds.
func (r Range) Start() float64 { return float64(r.StartMs) / 1000 }

// Stop returns the range stop in seconds.
func (r Range) Stop() float64 { return float64(r.StopMs) / 1000 }

// LengthMs returns the range length in milliseconds.
func (r Range) LengthMs() int64 { return r.StopMs - r.StartMs }

// String renders the range with the canonical offset format.
func (r Range) String() string {
	return FormatOffset(r.StartMs) + "-" + FormatOffset(r.StopMs)
}

// Clip is a time range within exactly one source file.
type Clip struct {
	ID        string    `json:"id"`
	FileID    string    `json:"file_id"`
	Range     Range     `json:"range"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the identity triple of the clip.
func (c Clip) Key() ClipKey {
	return ClipKey{FileID: c.FileID, Range: c.Range}
}

// ClipKey is the (file, start, stop) triple a clip identity derives from.
type ClipKey struct {
	FileID string
	Range  Range
}

// String renders the key for logs and lock tables.
func (k ClipKey) String() string {
	return k.FileID + "@" + strconv.FormatInt(k.Range.StartMs, 10) + ":" + strconv.FormatInt(k.Range.StopMs, 10)
}

// ClipSet is a named collection of clips returned together as one random set.
// ClipIDs keeps registration order, which fixes archive entry order.
type ClipSet struct {
	ID            string    `json:"id"`
	ClipIDs       []string  `json:"clip_ids"`
	MembershipKey string    `json:"membership_key"`
	CreatedAt     time.Time `json:"created_at"`
}

// Len returns the number of clips in the set.
func (s ClipSet) Len() int { return len(s.ClipIDs) }

// Millis converts seconds to whole milliseconds, rounding to nearest.
// Non-finite input returns math.MinInt64 so range validation rejects it.
func Millis(seconds float64) int64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return math.MinInt64
	}
	return int64(math.Round(seconds * 1000))
}

// FormatOffset renders a millisecond offset as seconds with two decimals, or
// three when the offset is not a whole number of hundredths. Distinct
// offsets never share a rendering. This is the only textual form offsets
// take in names and identifiers.
func FormatOffset(ms int64) string {
	prec := 2
	if ms%10 != 0 {
		prec = 3
	}
	return strconv.FormatFloat(float64(ms)/1000, 'f', prec, 64)
}

// FragmentName returns the archive entry name for a clip of the named file:
// "<basename>_<start>_<stop>.wav".
func FragmentName(fileName string, r Range) string {
	base := strings.TrimSuffix(fileName, path.Ext(fileName))
	base = textutil.SanitizeFileName(base)
	if base == "" {
		base = "clip"
	}
	return fmt.Sprintf("%s_%s_%s.wav", base, FormatOffset(r.StartMs), FormatOffset(r.StopMs))
}

// UniqueIDs drops repeated identifiers, keeping the first occurrence of each.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MembershipKey canonicalizes an unordered set of clip identifiers: the
// de-duplicated IDs are sorted, joined by newlines and hashed with SHA-256.
func MembershipKey(ids []string) string {
	sorted := UniqueIDs(ids)
	slices.Sort(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}
