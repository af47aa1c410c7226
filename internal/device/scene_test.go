package device

import (
	"context"
	"testing"
)

func TestScene(t *testing.T) {
	sender := &recordingSender{}
	s := NewScene(SceneRecord{
		ID:   7,
		Name: "Evening",
		Payload: Payload{
			"devices": []any{
				map[string]any{"deviceId": 10.0, "value": 40.0},
				map[string]any{"deviceId": 11.0, "value": 0.0},
			},
		},
	}, sender)

	if !s.Show() {
		t.Error("Show() should default to true")
	}
	if _, ok := s.Order(); ok {
		t.Error("Order() should be unset")
	}
	if s.DeviceCount() != 2 {
		t.Errorf("DeviceCount() = %d, want 2", s.DeviceCount())
	}

	s.Update(Payload{"name": "Late evening", "show": false, "order": 3.0})
	if s.Name() != "Late evening" || s.Show() {
		t.Errorf("after update name = %q show = %v", s.Name(), s.Show())
	}
	if order, ok := s.Order(); !ok || order != 3 {
		t.Errorf("Order() = %d, %v", order, ok)
	}

	s.Update(Payload{"name": ""})
	if s.Name() != "Late evening" {
		t.Error("empty name must not rename the scene")
	}

	devices := s.Devices()
	devices[0]["value"] = 99.0
	if s.Devices()[0]["value"] != 40.0 {
		t.Error("Devices() exposed internal state")
	}

	if err := s.Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	reqs := sender.sent()
	if len(reqs) != 1 || reqs[0].Type != MsgActivateScene || reqs[0].Payload["sceneId"] != 7 {
		t.Errorf("requests = %+v", reqs)
	}
}
