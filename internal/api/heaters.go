package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/power"
)

// handleHeaterPower returns a heater's corrected power, accumulated energy
// and stale-power watchdog state.
func (s *Server) handleHeaterPower(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	reading, err := s.bridge.HeaterPower(id)
	switch {
	case errors.Is(err, xcomfort.ErrNotReady):
		writeNotReady(w)
	case errors.Is(err, power.ErrUnknownSource):
		writeNotFound(w, "heater not found")
	case err != nil:
		writeInternalError(w, "failed to read heater power")
	default:
		writeJSON(w, http.StatusOK, reading)
	}
}
