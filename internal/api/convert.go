package api

import (
	"time"

	"audioserver/internal/archive"
	"audioserver/internal/catalog"
	"audioserver/internal/deps"
	"audioserver/internal/preflight"
)

// FromFile converts a file record to its API representation.
func FromFile(file catalog.SourceFile) File {
	return File{
		ID:        file.ID,
		Name:      file.Name,
		Duration:  file.Duration,
		MimeType:  file.MimeType,
		SizeBytes: file.SizeBytes,
		CreatedAt: formatTime(file.CreatedAt),
	}
}

// FromFiles converts a file listing. The result is never nil.
func FromFiles(files []catalog.SourceFile) []File {
	out := make([]File, 0, len(files))
	for _, file := range files {
		out = append(out, FromFile(file))
	}
	return out
}

// FromClip converts a clip. When the owning file is known its display name
// and the fragment name are included.
func FromClip(clip catalog.Clip, file *catalog.SourceFile) Clip {
	dto := Clip{
		ID:      clip.ID,
		FileID:  clip.FileID,
		Start:   catalog.FormatOffset(clip.Range.StartMs),
		Stop:    catalog.FormatOffset(clip.Range.StopMs),
		StartMs: clip.Range.StartMs,
		StopMs:  clip.Range.StopMs,
	}
	if file != nil {
		dto.FileName = file.Name
		dto.Fragment = catalog.FragmentName(file.Name, clip.Range)
	}
	return dto
}

// FromClipSet converts a set. clips, when given, must be in member order;
// files maps file IDs to records for naming.
func FromClipSet(set catalog.ClipSet, clips []catalog.Clip, files map[string]catalog.SourceFile) ClipSet {
	ids := set.ClipIDs
	if ids == nil {
		ids = []string{}
	}
	dto := ClipSet{
		ID:          set.ID,
		ClipIDs:     ids,
		ArchiveName: archive.FileName(set.ID),
		CreatedAt:   formatTime(set.CreatedAt),
	}
	for _, clip := range clips {
		var file *catalog.SourceFile
		if f, ok := files[clip.FileID]; ok {
			file = &f
		}
		dto.Clips = append(dto.Clips, FromClip(clip, file))
	}
	return dto
}

// FromDependencies converts dependency statuses.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Version:     dep.Version,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
