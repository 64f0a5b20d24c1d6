package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/varlet-dev/varlet/internal/engine"
	"github.com/varlet-dev/varlet/pkg/types"
)

// listConfigs returns every stored service configuration record.
func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.ListConfigurations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStoreFailure, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// setConfig stores a record and makes it the active configuration.
func (s *Server) setConfig(w http.ResponseWriter, r *http.Request) {
	var record types.ServiceConfig
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	saved, err := s.engine.SetServiceConfiguration(r.Context(), record)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeStoreFailure, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// removeConfig drops the record for a service and environment.
func (s *Server) removeConfig(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	environment := chi.URLParam(r, "environment")

	removed, err := s.engine.RemoveConfiguration(r.Context(), service, environment)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStoreFailure, err.Error())
		return
	}
	if removed == 0 {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no matching configuration")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// wipeConfigs empties the store.
func (s *Server) wipeConfigs(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.WipeConfigurations(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStoreFailure, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getSources returns the active ordered source list.
func (s *Server) getSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ActiveSources())
}

type updateSourcesRequest struct {
	Paths []string `json:"paths"`
}

// updateSources replaces the active source list.
func (s *Server) updateSources(w http.ResponseWriter, r *http.Request) {
	var req updateSourcesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	paths, err := s.engine.UpdateSources(r.Context(), req.Paths)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, paths)
}

type documentRequest struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// validateDocument checks placeholders in the supplied text against the
// namespace applying to its path.
func (s *Server) validateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	diags := s.engine.ValidateDocument(r.Context(), req.Path, req.Text)
	writeJSON(w, http.StatusOK, map[string]any{"diagnostics": diags})
}

type renderRequest struct {
	Path string `json:"path"`
	Text string `json:"text"`
	Diff bool   `json:"diff"`
}

type renderResponse struct {
	Rendered string `json:"rendered"`
	Diff     string `json:"diff,omitempty"`
}

// renderDocument substitutes defined placeholders, optionally with a
// template-vs-rendering diff for previews.
func (s *Server) renderDocument(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	resp := renderResponse{
		Rendered: s.engine.RenderDocument(r.Context(), req.Path, req.Text),
	}
	if req.Diff {
		resp.Diff = s.engine.RenderDocumentDiff(r.Context(), req.Path, req.Text)
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveDocument returns the stored record applying to a document path.
func (s *Server) resolveDocument(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "path query parameter is required")
		return
	}

	record, ok, err := s.engine.ResolveDocument(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStoreFailure, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no configuration applies to this document")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type discoverRequest struct {
	Root   string `json:"root"`
	Import bool   `json:"import"`
}

// discoverSettings scans a central settings tree, optionally importing
// the derived records into the store.
func (s *Server) discoverSettings(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Root == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "root is required")
		return
	}

	var (
		records []types.ServiceConfig
		err     error
	)
	if req.Import {
		records, err = s.engine.ImportDiscovered(r.Context(), req.Root)
	} else {
		records, err = s.engine.Discover(req.Root)
	}
	if err != nil {
		log.Error().Err(err).Str("root", req.Root).Msg("settings discovery failed")
		writeError(w, http.StatusInternalServerError, ErrCodeScanFailure, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}
