package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"fieldroute/internal/integrations"
	"fieldroute/internal/integrations/csvfile"
	"fieldroute/internal/integrations/xlsxfile"
	"fieldroute/internal/webhooks"
)

const maxImportBytes = 16 << 20

// ImportJobsHandler handles POST /v1/imports/jobs: a multipart upload with a
// "file" part (.csv or .xlsx) whose rows become pending jobs.
func (s *Server) ImportJobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid upload", err.Error(), r.URL.Path)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Missing file", "multipart part \"file\" required", r.URL.Path)
		return
	}
	defer file.Close()

	var src integrations.JobSource
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		src = csvfile.Source{}
	case ".xlsx":
		src = xlsxfile.Source{}
	default:
		writeProblem(w, http.StatusUnsupportedMediaType, "Unsupported file type", "expected .csv or .xlsx", r.URL.Path)
		return
	}

	jobs, err := src.ParseJobs(file)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Parse failed", err.Error(), r.URL.Path)
		return
	}
	if err := validateJobsIn(jobs); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid jobs", err.Error(), r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	ids, err := s.Store.CreateJobs(r.Context(), tenant, jobs)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create jobs failed", err.Error(), r.URL.Path)
		return
	}
	s.Pub.Emit(r.Context(), tenant, webhooks.EventJobsImported, map[string]any{
		"source": src.Name(), "filename": header.Filename, "count": len(ids),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids, "created": len(ids), "source": src.Name()})
}
