package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/logging"
	"github.com/nerrad567/xcomfort-core/internal/power"
)

// fakeBridge serves a prepared registry and records what handlers ask of it.
type fakeBridge struct {
	mu       sync.Mutex
	reg      *device.Registry
	info     device.BridgeInfo
	loadedAt time.Time
	readings map[int]power.Reading
	cmdErr   error

	commands []xcomfort.CommandMessage
	climate  []xcomfort.ClimateCommand
	scenes   []int
	subs     map[int]func(xcomfort.Event)
	nextSub  int
}

func (f *fakeBridge) Registry() (*device.Registry, bool) { return f.reg, f.reg != nil }

func (f *fakeBridge) Info() (device.BridgeInfo, time.Time) { return f.info, f.loadedAt }

func (f *fakeBridge) Health() xcomfort.HealthMessage {
	if f.reg == nil {
		return xcomfort.HealthMessage{Bridge: "b1", Status: xcomfort.HealthDegraded, Reason: "waiting for snapshot"}
	}
	d, c, r, s := f.reg.Counts()
	return xcomfort.HealthMessage{
		Bridge: "b1", Status: xcomfort.HealthHealthy, SnapshotLoaded: true,
		Devices: d, Components: c, Rooms: r, Scenes: s,
	}
}

func (f *fakeBridge) HeaterPower(id int) (power.Reading, error) {
	if f.reg == nil {
		return power.Reading{}, xcomfort.ErrNotReady
	}
	rd, ok := f.readings[id]
	if !ok {
		return power.Reading{}, fmt.Errorf("%w: heater/%d", power.ErrUnknownSource, id)
	}
	return rd, nil
}

func (f *fakeBridge) HandleCommand(_ context.Context, deviceID int, msg xcomfort.CommandMessage) error {
	if f.reg == nil {
		return xcomfort.ErrNotReady
	}
	if _, ok := f.reg.Device(deviceID); !ok {
		return fmt.Errorf("%w: %d", device.ErrDeviceNotFound, deviceID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, msg)
	return f.cmdErr
}

func (f *fakeBridge) SetRoomClimate(_ context.Context, roomID int, cc xcomfort.ClimateCommand) error {
	if _, ok := f.reg.Room(roomID); !ok {
		return fmt.Errorf("%w: %d", device.ErrRoomNotFound, roomID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.climate = append(f.climate, cc)
	return f.cmdErr
}

func (f *fakeBridge) ActivateScene(_ context.Context, sceneID int) error {
	if _, ok := f.reg.Scene(sceneID); !ok {
		return fmt.Errorf("%w: %d", device.ErrSceneNotFound, sceneID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes = append(f.scenes, sceneID)
	return nil
}

func (f *fakeBridge) Subscribe(fn func(xcomfort.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]func(xcomfort.Event))
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeBridge) emit(e xcomfort.Event) {
	f.mu.Lock()
	subs := make([]func(xcomfort.Event), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

func (f *fakeBridge) recordedCommands() []xcomfort.CommandMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]xcomfort.CommandMessage(nil), f.commands...)
}

// memoryAudit is an audit.Repository that remembers the last filter.
type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	filter  audit.Filter
}

func (a *memoryAudit) Create(_ context.Context, e *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *memoryAudit) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filter = filter
	var out []audit.Entry
	for _, e := range a.entries {
		if filter.DeviceID != 0 && e.DeviceID != filter.DeviceID {
			continue
		}
		out = append(out, e)
	}
	return &audit.ListResult{Entries: out, Total: len(out), Limit: filter.Limit, Offset: filter.Offset}, nil
}

// testRegistry builds a small installation:
//
//	10 Kitchen dimmable light (on, 40)
//	20 Varmekabel Bad heater
//	30 RC Touch in room 4
//	40 Blind on shading actuator 7
//	51, 52 rockers on two-channel push button 5
//	room 4 Bad; scenes 1 (order 2), 2 (order 1), 3 (hidden)
func testRegistry(t *testing.T) *device.Registry {
	t.Helper()
	reg := device.NewRegistry()
	reg.AddComponent(device.NewComponent(device.ComponentRecord{ID: 5, Name: "Hall", CompType: device.CompTypePushButton2}))
	reg.AddComponent(device.NewComponent(device.ComponentRecord{ID: 7, Name: "Blind actuator", CompType: device.CompTypeShadingActuator}))
	reg.AddRoom(device.NewRoom(device.RoomRecord{ID: 4, Name: "Bad", Payload: device.Payload{}}, nil, nil))

	records := []device.DeviceRecord{
		{ID: 10, Name: "Kitchen", DevType: device.DevTypeActuatorDimm, Dimmable: true},
		{ID: 20, Name: "Varmekabel Bad", DevType: device.DevTypeHeatingActuator},
		{ID: 30, Name: "RC Touch", DevType: device.DevTypeRCTouch, Payload: device.Payload{"tempRoom": 4.0}},
		{ID: 40, Name: "Blind", DevType: device.DevTypeShading, CompID: 7, Payload: device.Payload{"shRuntime": 1.0}},
		{ID: 51, Name: "Hall up", DevType: device.DevTypePushButton, CompID: 5, Payload: device.Payload{"controlId": []any{10.0}}},
		{ID: 52, Name: "Hall down", DevType: device.DevTypePushButton, CompID: 5},
	}
	for _, rec := range records {
		if rec.Payload == nil {
			rec.Payload = device.Payload{}
		}
		reg.AddDevice(device.New(rec, device.Options{Directory: reg}))
	}
	reg.ResolveAll()

	light, _ := reg.Device(10)
	light.HandleState(device.Payload{"switch": true, "dimmvalue": 40.0})

	reg.AddScene(device.NewScene(device.SceneRecord{ID: 1, Name: "Evening", Payload: device.Payload{"order": 2.0}}, nil))
	reg.AddScene(device.NewScene(device.SceneRecord{ID: 2, Name: "Morning", Payload: device.Payload{
		"order":   1.0,
		"devices": []any{map[string]any{"deviceId": 10.0, "value": 80.0}},
	}}, nil))
	reg.AddScene(device.NewScene(device.SceneRecord{ID: 3, Name: "Service", Payload: device.Payload{"show": false}}, nil))
	return reg
}

type testFixture struct {
	srv     *Server
	bridge  *fakeBridge
	audit   *memoryAudit
	handler http.Handler
}

func newTestFixture(t *testing.T, loaded bool) *testFixture {
	t.Helper()
	fb := &fakeBridge{
		info: device.BridgeInfo{ID: "b1", Name: "Hytta", Model: "CI", FirmwareVersion: "2.1"},
		readings: map[int]power.Reading{
			20: {Kind: power.SourceHeater, ID: 20, Name: "Varmekabel Bad", PowerW: 800, RawPowerW: 800, EnergyKWh: 1.5, Protected: true, RoomID: 4},
		},
	}
	if loaded {
		fb.reg = testRegistry(t)
		fb.loadedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	auditRepo := &memoryAudit{}

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5}},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Logger:  logging.Discard(),
		Bridge:  fb,
		Audit:   auditRepo,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("xcomfort_bridge_up 1\n")) //nolint:errcheck // test handler
		}),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testFixture{srv: srv, bridge: fb, audit: auditRepo, handler: srv.buildRouter()}
}

func (f *testFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return out
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
