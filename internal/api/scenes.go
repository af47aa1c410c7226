package api

import (
	"net/http"
	"sort"

	"github.com/nerrad567/xcomfort-core/internal/device"
)

// SceneView is the API representation of a scene.
type SceneView struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Show        bool             `json:"show"`
	Order       *int             `json:"order,omitempty"`
	DeviceCount int              `json:"device_count"`
	Devices     []map[string]any `json:"devices"`
}

func newSceneView(sc *device.Scene) SceneView {
	v := SceneView{
		ID:          sc.ID(),
		Name:        sc.Name(),
		Show:        sc.Show(),
		Devices:     sc.Devices(),
		DeviceCount: sc.DeviceCount(),
	}
	if order, ok := sc.Order(); ok {
		v.Order = &order
	}
	return v
}

// handleListScenes returns scenes sorted by their order, then id.
//
// Query parameters:
//   - all: include scenes marked hidden when "true"
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.bridge.Registry()
	if !ok {
		writeNotReady(w)
		return
	}
	includeHidden := r.URL.Query().Get("all") == "true"

	scenes := reg.Scenes()
	views := make([]SceneView, 0, len(scenes))
	for _, sc := range scenes {
		if !includeHidden && !sc.Show() {
			continue
		}
		views = append(views, newSceneView(sc))
	}
	sort.SliceStable(views, func(i, j int) bool {
		oi, oj := views[i].Order, views[j].Order
		switch {
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		case oi != nil && oj == nil:
			return true
		case oi == nil && oj != nil:
			return false
		}
		return views[i].ID < views[j].ID
	})
	writeJSON(w, http.StatusOK, map[string]any{"scenes": views, "count": len(views)})
}

// handleActivateScene asks the bridge to apply a scene.
func (s *Server) handleActivateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.bridge.ActivateScene(r.Context(), id); err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"scene_id": id, "status": "activated"})
}
