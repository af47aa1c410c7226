package api

import (
	"net/http"

	"github.com/nerrad567/xcomfort-core/internal/device"
)

// ComponentView is a physical component with its devices and, for rocker
// components, the channel grouping shown to users.
type ComponentView struct {
	ID       int                    `json:"id"`
	Name     string                 `json:"name"`
	Type     device.CompType        `json:"comp_type"`
	Model    string                 `json:"model"`
	Devices  []int                  `json:"devices"`
	State    *device.ComponentState `json:"state,omitempty"`
	Channels []device.ChannelGroup  `json:"channel_groups,omitempty"`
}

// handleListComponents returns every component with its channel groups.
func (s *Server) handleListComponents(w http.ResponseWriter, _ *http.Request) {
	reg, ok := s.bridge.Registry()
	if !ok {
		writeNotReady(w)
		return
	}

	groups := make(map[int][]device.ChannelGroup)
	for _, g := range device.GroupRockers(reg, reg.Rockers()) {
		groups[g.ComponentID] = append(groups[g.ComponentID], g)
	}

	comps := reg.Components()
	views := make([]ComponentView, 0, len(comps))
	for _, c := range comps {
		members := reg.DevicesInComponent(c.ID())
		ids := make([]int, 0, len(members))
		for _, d := range members {
			ids = append(ids, d.ID())
		}
		v := ComponentView{
			ID:       c.ID(),
			Name:     c.Name(),
			Type:     c.Type(),
			Model:    c.Type().Model(),
			Devices:  ids,
			Channels: groups[c.ID()],
		}
		if st, ok := c.Current(); ok {
			v.State = &st
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"components": views, "count": len(views)})
}
