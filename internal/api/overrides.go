package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/zone-climate-core/internal/engine"
)

// setModeRequest is the body for PUT /mode.
type setModeRequest struct {
	Mode string `json:"mode"`
}

// setProfileRequest is the body for PUT /profile.
type setProfileRequest struct {
	Profile string `json:"profile"`
}

// roomOverridesRequest is the body for PUT /rooms/{id}/overrides.
// Absent fields leave the corresponding override untouched.
type roomOverridesRequest struct {
	Enabled   *bool    `json:"enabled,omitempty"`
	Target    *float64 `json:"target,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

// handleSetMode overrides the operating mode (off, per_room, global).
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.orchestrator.SetMode(engine.Mode(req.Mode)); err != nil {
		if errors.Is(err, engine.ErrInvalidMode) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to set mode")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"mode": req.Mode})
}

// handleSetProfile overrides the escalation profile (normal, fast, extreme).
func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	var req setProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.orchestrator.SetProfile(engine.Profile(req.Profile)); err != nil {
		if errors.Is(err, engine.ErrInvalidProfile) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to set profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"profile": req.Profile})
}

// handleSetRoomOverrides applies per-room overrides. Each field present
// in the body is applied; absent fields keep their current override.
func (s *Server) handleSetRoomOverrides(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req roomOverridesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil && req.Target == nil && req.Tolerance == nil {
		writeBadRequest(w, "at least one of enabled, target, tolerance is required")
		return
	}

	if req.Enabled != nil {
		if err := s.orchestrator.SetRoomEnabled(id, *req.Enabled); err != nil {
			writeOverrideError(w, err)
			return
		}
	}
	if req.Target != nil {
		if err := s.orchestrator.SetRoomTarget(id, *req.Target); err != nil {
			writeOverrideError(w, err)
			return
		}
	}
	if req.Tolerance != nil {
		if err := s.orchestrator.SetRoomTolerance(id, *req.Tolerance); err != nil {
			writeOverrideError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"room_id": id})
}

// handleClearRoomOverrides removes all overrides for a room, reverting
// it to its configured values.
func (s *Server) handleClearRoomOverrides(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orchestrator.ClearRoomOverrides(id); err != nil {
		writeOverrideError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"room_id": id})
}

// handleReloadZones reloads the zones file and swaps it into the running
// orchestrator. The new configuration takes effect at the next cycle.
func (s *Server) handleReloadZones(w http.ResponseWriter, _ *http.Request) {
	if s.zonesFile == "" {
		writeNotFound(w, "zones reload not configured")
		return
	}

	cfg, err := engine.LoadZones(s.zonesFile)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.orchestrator.UpdateConfig(cfg); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	s.orchestrator.Trigger()
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":          len(cfg.Rooms),
		"shared_devices": len(cfg.SharedDevices),
	})
}

// writeOverrideError maps engine override errors to HTTP responses.
func writeOverrideError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrRoomNotFound):
		writeNotFound(w, "room not found")
	case errors.Is(err, engine.ErrInvalidConfig):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, "failed to apply override")
	}
}
