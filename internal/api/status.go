package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/zone-climate-core/internal/engine"
)

// handleStatus returns the snapshot from the most recent completed cycle.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Status())
}

// handleGates returns the weather-gate decisions from the last cycle.
func (s *Server) handleGates(w http.ResponseWriter, _ *http.Request) {
	status := s.orchestrator.Status()
	gates := status.Gates
	if gates == nil {
		gates = []engine.GateStatus{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id": status.CycleID,
		"gates":    gates,
		"count":    len(gates),
	})
}

// handleListRooms returns the per-room status from the last cycle.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	status := s.orchestrator.Status()
	rooms := status.Rooms
	if rooms == nil {
		rooms = []engine.RoomStatus{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id": status.CycleID,
		"rooms":    rooms,
		"count":    len(rooms),
	})
}

// handleGetRoom returns the last-cycle status for a single room.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	room, err := s.orchestrator.RoomStatus(id)
	if err != nil {
		if errors.Is(err, engine.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return
		}
		writeInternalError(w, "failed to get room status")
		return
	}

	writeJSON(w, http.StatusOK, room)
}
