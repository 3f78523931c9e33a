package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// File describes an ingested audio file.
type File struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Duration  float64 `json:"duration"`
	MimeType  string  `json:"mimeType"`
	SizeBytes int64   `json:"sizeBytes"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// Clip describes one member of a clip set.
type Clip struct {
	ID       string `json:"id"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName,omitempty"`
	Start    string `json:"start"`
	Stop     string `json:"stop"`
	StartMs  int64  `json:"startMs"`
	StopMs   int64  `json:"stopMs"`
	Fragment string `json:"fragment,omitempty"`
}

// ClipSet describes a stored set.
type ClipSet struct {
	ID          string   `json:"id"`
	ClipIDs     []string `json:"clipIds"`
	Clips       []Clip   `json:"clips,omitempty"`
	ArchiveName string   `json:"archiveName"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// CatalogStats carries row counts.
type CatalogStats struct {
	Files          int  `json:"files"`
	Clips          int  `json:"clips"`
	Sets           int  `json:"sets"`
	ArchiveCache   bool `json:"archiveCache"`
	CachedArchives int  `json:"cachedArchives"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult mirrors a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Status aggregates server runtime information for API consumers.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Address      string             `json:"address,omitempty"`
	StartedAt    string             `json:"startedAt,omitempty"`
	DatabasePath string             `json:"databasePath"`
	FilesDir     string             `json:"filesDir"`
	LockFilePath string             `json:"lockFilePath"`
	Catalog      CatalogStats       `json:"catalog"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Checks       []CheckResult      `json:"checks"`
}

// FileListResponse wraps a file listing.
type FileListResponse struct {
	Files []File `json:"files"`
}

// SetListResponse wraps a set listing.
type SetListResponse struct {
	Sets []ClipSet `json:"sets"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
