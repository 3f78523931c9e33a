package daemon

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"audioserver/internal/api"
	"audioserver/internal/catalog"
	"audioserver/internal/logging"
	"audioserver/internal/services"
)

const uploadFormField = "file"

// handleUpload accepts either a multipart form with a "file" part or a raw
// request body. The display name comes from ?name= and falls back to the
// part's file name.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes()+1<<20)
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	mimeType := r.Header.Get("Content-Type")
	var body io.Reader = r.Body

	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil && mediaType == "multipart/form-data" {
		reader, err := r.MultipartReader()
		if err != nil {
			s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "upload", "multipart body", err))
			return
		}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "upload", "missing \""+uploadFormField+"\" part", nil))
				return
			}
			if err != nil {
				s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "upload", "multipart body", err))
				return
			}
			if part.FormName() != uploadFormField {
				_ = part.Close()
				continue
			}
			defer part.Close()
			if name == "" {
				name = part.FileName()
			}
			mimeType = part.Header.Get("Content-Type")
			body = part
			break
		}
	}

	file, err := s.svc.AddFile(r.Context(), name, mimeType, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/files/"+file.ID)
	s.writeJSON(w, http.StatusCreated, api.FromFile(file))
}

func (s *apiServer) handleListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := catalog.FileFilter{Name: query.Get("name")}
	if raw := strings.TrimSpace(query.Get("maxduration")); raw != "" {
		maxDuration, err := strconv.ParseFloat(raw, 64)
		if err != nil || maxDuration < 0 {
			s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "list files", "maxduration must be a non-negative number", err))
			return
		}
		filter.MaxDuration = maxDuration
	}
	files, err := s.svc.ListFiles(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FileListResponse{Files: api.FromFiles(files)})
}

func (s *apiServer) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	file, err := s.svc.FileInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromFile(file))
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	file, rc, err := s.svc.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logging.WithContext(r.Context(), s.logger).Debug("download interrupted",
			logging.String(logging.FieldFileID, file.ID),
			logging.Error(err))
	}
}
