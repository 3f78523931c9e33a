package daemon

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"audioserver/internal/api"
	"audioserver/internal/archive"
	"audioserver/internal/catalog"
	"audioserver/internal/logging"
	"audioserver/internal/services"
)

func (s *apiServer) handleNewSet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	count, err := strconv.Atoi(strings.TrimSpace(query.Get("count")))
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrInvalidRange, "api", "new set", "count must be an integer", err))
		return
	}
	length, err := strconv.ParseFloat(strings.TrimSpace(query.Get("length")), 64)
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrInvalidRange, "api", "new set", "length must be a number of seconds", err))
		return
	}
	set, err := s.svc.RequestNewSet(r.Context(), count, length)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.setView(r.Context(), set)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sets/"+set.ID)
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.svc.ListSets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]api.ClipSet, 0, len(sets))
	for _, set := range sets {
		views = append(views, api.FromClipSet(set, nil, nil))
	}
	s.writeJSON(w, http.StatusOK, api.SetListResponse{Sets: views})
}

func (s *apiServer) handleSet(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.RequestExistingSet(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.setView(r.Context(), set)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// handleArchive streams the set's tar archive. Headers are held back until
// the first archive byte so a failure on the first member still produces a
// JSON error; a later failure aborts the connection.
func (s *apiServer) handleArchive(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.RequestExistingSet(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := &deferredWriter{
		w: w,
		onFirstWrite: func() {
			w.Header().Set("Content-Type", archive.ContentType)
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": archive.FileName(set.ID)}))
			w.WriteHeader(http.StatusOK)
		},
	}
	if err := s.svc.BuildArchive(r.Context(), out, set); err != nil {
		if !out.started {
			s.writeError(w, r, err)
			return
		}
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "archive stream aborted", "archive_stream_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry the download; check the source file bytes"),
			logging.String(logging.FieldImpact, "the client received a truncated archive"))
		panic(http.ErrAbortHandler)
	}
}

func (s *apiServer) setView(ctx context.Context, set catalog.ClipSet) (api.ClipSet, error) {
	clips, err := s.svc.SetClips(ctx, set)
	if err != nil {
		return api.ClipSet{}, err
	}
	files, err := s.svc.ClipFiles(ctx, clips)
	if err != nil {
		return api.ClipSet{}, err
	}
	return api.FromClipSet(set, clips, files), nil
}

type deferredWriter struct {
	w            http.ResponseWriter
	onFirstWrite func()
	started      bool
}

func (d *deferredWriter) Write(p []byte) (int, error) {
	if !d.started {
		d.started = true
		d.onFirstWrite()
	}
	return d.w.Write(p)
}
