package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/xcomfort-core/internal/audit"
)

// handleListCommands returns paginated command log entries, newest first.
//
// Query parameters:
//   - device_id: filter by device
//   - source: filter by origin (mqtt, http)
//   - failed: only refused or failed commands when "true"
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "command log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Source: q.Get("source"),
		Failed: q.Get("failed") == "true",
	}
	for name, dst := range map[string]*int{
		"device_id": &filter.DeviceID,
		"limit":     &filter.Limit,
		"offset":    &filter.Offset,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list commands", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
