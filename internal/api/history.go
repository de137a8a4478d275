package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListCycles returns recent cycles, newest first.
//
// Query parameters:
//   - limit: maximum entries (default 50, max 200)
func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history not available")
		return
	}

	cycles, err := s.history.ListCycles(r.Context(), queryLimit(r))
	if err != nil {
		s.logger.Error("listing cycles", "error", err)
		writeInternalError(w, "failed to list cycles")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles, "count": len(cycles)})
}

// handleListCycleCommands returns the commands emitted by one cycle.
func (s *Server) handleListCycleCommands(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history not available")
		return
	}
	id := chi.URLParam(r, "id")

	commands, err := s.history.ListCommands(r.Context(), id)
	if err != nil {
		s.logger.Error("listing cycle commands", "cycle_id", id, "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cycle_id": id, "commands": commands, "count": len(commands)})
}

// handleDeviceHistory returns recent commands for one device, newest first.
//
// Query parameters:
//   - limit: maximum entries (default 50, max 200)
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history not available")
		return
	}
	device := chi.URLParam(r, "device")

	commands, err := s.history.DeviceHistory(r.Context(), device, queryLimit(r))
	if err != nil {
		s.logger.Error("listing device history", "device", device, "error", err)
		writeInternalError(w, "failed to list device history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"device": device, "commands": commands, "count": len(commands)})
}

// queryLimit parses the optional limit query parameter. Zero means the
// repository default.
func queryLimit(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
