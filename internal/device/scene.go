package device

import (
	"context"
	"sync"
)

// Scene is a stored set of device values that the bridge applies at once.
type Scene struct {
	mu      sync.RWMutex
	id      int
	name    string
	payload Payload
	sender  Sender
}

// NewScene creates a scene from its snapshot record.
func NewScene(rec SceneRecord, sender Sender) *Scene {
	payload := rec.Payload.Clone()
	return &Scene{id: rec.ID, name: rec.Name, payload: payload, sender: sender}
}

// ID returns the scene id.
func (s *Scene) ID() int { return s.id }

// Name returns the scene name.
func (s *Scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Update merges a partial scene payload. A non-empty name renames the scene.
func (s *Scene) Update(p Payload) {
	if len(p) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = s.payload.Merge(p)
	if name, ok := p.String("name"); ok && name != "" {
		s.name = name
	}
}

// Show reports whether the scene is marked visible. Defaults to true.
func (s *Scene) Show() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.payload.Bool("show"); ok {
		return v
	}
	return true
}

// Order returns the scene's sort order, if set.
func (s *Scene) Order() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payload.Int("order")
}

// Devices returns the scene's device entries (deviceId, value, type).
func (s *Scene) Devices() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, _ := s.payload["devices"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, deepCopyMap(m))
		}
	}
	return out
}

// DeviceCount returns the number of device entries in the scene.
func (s *Scene) DeviceCount() int {
	return len(s.Devices())
}

// Activate asks the bridge to apply the scene.
func (s *Scene) Activate(ctx context.Context) error {
	return send(ctx, s.sender, NewRequest(MsgActivateScene, Payload{"sceneId": s.id}))
}
