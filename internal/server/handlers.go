package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/iForgotThePlusC/Wind-Turbines/internal/errors"
)

// handleCreate handles POST /api/v1/layouts
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !s.decode(w, r, &req) {
		return
	}

	state, err := s.CreateLayout(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, state)
}

// handleList handles GET /api/v1/layouts
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"layouts": s.ListLayouts(),
	})
}

// handleStatus handles GET /api/v1/layouts/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.LayoutStatus(chi.URLParam(r, "id"))
	s.respond(w, state, err)
}

// handleConfigure handles PATCH /api/v1/layouts/{id}
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req ConfigureRequest
	if !s.decode(w, r, &req) {
		return
	}

	state, err := s.ConfigureLayout(chi.URLParam(r, "id"), req)
	s.respond(w, state, err)
}

// handleDelete handles DELETE /api/v1/layouts/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.DeleteLayout(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "deleted",
	})
}

// handleStep handles POST /api/v1/layouts/{id}/step
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	state, err := s.StepLayout(chi.URLParam(r, "id"), req.Count)
	s.respond(w, state, err)
}

// handleRandomize handles POST /api/v1/layouts/{id}/randomize
func (s *Server) handleRandomize(w http.ResponseWriter, r *http.Request) {
	state, err := s.RandomizeLayout(chi.URLParam(r, "id"))
	s.respond(w, state, err)
}

// handleStart handles POST /api/v1/layouts/{id}/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	state, err := s.StartLayout(chi.URLParam(r, "id"))
	s.respond(w, state, err)
}

// handleStop handles POST /api/v1/layouts/{id}/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	state, err := s.StopLayout(chi.URLParam(r, "id"))
	s.respond(w, state, err)
}

// handleProfile handles GET /api/v1/layouts/{id}/profile?angle=N
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	angle := 0
	if raw := r.URL.Query().Get("angle"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, apperrors.Invalidf("angle %q is not an integer", raw).WithOperation("LayoutProfile"))
			return
		}
		angle = v
	}

	profile, err := s.LayoutProfile(chi.URLParam(r, "id"), angle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

// decode reads an optional JSON body into v. An empty body leaves v as is.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		s.writeError(w, apperrors.Invalidf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, state *LayoutState, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", map[string]interface{}{"error": err.Error()})
	}
	s.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"kind":  apperrors.KindOf(err).String(),
	})
}
