package api

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/logging"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(Deps{Bridge: &fakeBridge{}}); err == nil {
		t.Error("New() without logger succeeded")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without bridge succeeded")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		loaded     bool
		wantStatus int
		wantHealth string
	}{
		{"before snapshot", false, http.StatusServiceUnavailable, string(xcomfort.HealthDegraded)},
		{"after snapshot", true, http.StatusOK, string(xcomfort.HealthHealthy)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFixture(t, tt.loaded)
			w := f.do(t, http.MethodGet, "/api/v1/health", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeBody(t, w)["status"]; got != tt.wantHealth {
				t.Errorf("health status = %v, want %s", got, tt.wantHealth)
			}
		})
	}
}

func TestRegistryEndpoints_NotReady(t *testing.T) {
	f := newTestFixture(t, false)
	paths := []string{
		"/api/v1/devices",
		"/api/v1/devices/10",
		"/api/v1/components",
		"/api/v1/rooms",
		"/api/v1/rooms/4",
		"/api/v1/scenes",
		"/api/v1/heaters/20/power",
		"/api/v1/bridge",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			w := f.do(t, http.MethodGet, p, "")
			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want 503", w.Code)
			}
			if code := decodeBody(t, w)["code"]; code != ErrCodeNotReady {
				t.Errorf("code = %v, want %s", code, ErrCodeNotReady)
			}
		})
	}
}

func TestListDevices(t *testing.T) {
	f := newTestFixture(t, true)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount float64
	}{
		{"all", "", http.StatusOK, 6},
		{"by kind", "?kind=rocker", http.StatusOK, 2},
		{"by component", "?component_id=7", http.StatusOK, 1},
		{"kind and component", "?component_id=5&kind=light", http.StatusOK, 0},
		{"bad component", "?component_id=x", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/v1/devices"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if got := decodeBody(t, w)["count"]; got != tt.wantCount {
				t.Errorf("count = %v, want %v", got, tt.wantCount)
			}
		})
	}
}

func TestGetDevice(t *testing.T) {
	f := newTestFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/v1/devices/10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	light := decodeBody(t, w)
	if light["kind"] != string(device.KindLight) || light["dimmable"] != true {
		t.Errorf("light = %v", light)
	}
	state, _ := light["state"].(map[string]any)
	if state["switch"] != true || state["dimmvalue"] != 40.0 {
		t.Errorf("light state = %v", state)
	}

	shade := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/devices/40", ""))
	if shade["supports_go_to"] != true {
		t.Errorf("shade supports_go_to = %v", shade["supports_go_to"])
	}
	if _, ok := shade["state"]; ok {
		t.Error("shade without state reported one")
	}

	rocker := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/devices/51", ""))
	if rocker["description"] != "Hall up (Kitchen)" {
		t.Errorf("rocker description = %v", rocker["description"])
	}

	touch := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/devices/30", ""))
	if touch["room_id"] != 4.0 {
		t.Errorf("climate touch room = %v", touch["room_id"])
	}

	if w := f.do(t, http.MethodGet, "/api/v1/devices/999", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/devices/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", w.Code)
	}
}

func TestDeviceCommand(t *testing.T) {
	f := newTestFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/v1/devices/10/command", `{"command":"dim","value":55}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	ack := decodeBody(t, w)
	if ack["status"] != string(xcomfort.AckAccepted) || ack["command_id"] == "" {
		t.Errorf("ack = %v", ack)
	}

	cmds := f.bridge.recordedCommands()
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if c := cmds[0]; c.Command != "dim" || c.Value != 55.0 || c.Source != audit.SourceHTTP || c.ID != ack["command_id"] {
		t.Errorf("command = %+v", c)
	}
}

func TestDeviceCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		cmdErr   error
		wantCode int
	}{
		{"invalid json", "/api/v1/devices/10/command", `{`, nil, http.StatusBadRequest},
		{"missing command", "/api/v1/devices/10/command", `{"value":1}`, nil, http.StatusBadRequest},
		{"unknown device", "/api/v1/devices/999/command", `{"command":"switch","value":true}`, nil, http.StatusNotFound},
		{"unknown command", "/api/v1/devices/10/command", `{"command":"blink"}`, xcomfort.ErrUnknownCommand, http.StatusBadRequest},
		{"safety", "/api/v1/devices/40/command", `{"command":"move_up"}`, device.ErrSafetyEnabled, http.StatusConflict},
		{"out of range", "/api/v1/devices/40/command", `{"command":"move_to","value":150}`, device.ErrPositionOutOfRange, http.StatusBadRequest},
		{"transport", "/api/v1/devices/10/command", `{"command":"switch","value":true}`, errors.New("broker gone"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFixture(t, true)
			f.bridge.cmdErr = tt.cmdErr
			w := f.do(t, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestListComponents(t *testing.T) {
	f := newTestFixture(t, true)
	w := f.do(t, http.MethodGet, "/api/v1/components", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	comps, _ := body["components"].([]any)
	if len(comps) != 2 {
		t.Fatalf("components = %d, want 2", len(comps))
	}

	var hall map[string]any
	for _, c := range comps {
		if m := c.(map[string]any); m["id"] == 5.0 {
			hall = m
		}
	}
	if hall == nil {
		t.Fatal("component 5 missing")
	}
	groups, _ := hall["channel_groups"].([]any)
	if len(groups) != 1 {
		t.Fatalf("channel groups = %v, want one two-channel group", groups)
	}
	channels := groups[0].(map[string]any)["channels"].([]any)
	if len(channels) != 2 {
		t.Fatalf("channels = %v", channels)
	}
	first := channels[0].(map[string]any)
	if first["channel"] != 1.0 || first["device_id"] != 51.0 {
		t.Errorf("first channel = %v", first)
	}
	if hall["model"] != "2-Channel Pushbutton" {
		t.Errorf("model = %v", hall["model"])
	}
}

func TestRooms(t *testing.T) {
	f := newTestFixture(t, true)

	list := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/rooms", ""))
	if list["count"] != 1.0 {
		t.Fatalf("rooms = %v", list)
	}

	room := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/rooms/4", ""))
	if room["name"] != "Bad" || room["hvac_mode"] != "off" || room["hvac_action"] != "idle" || room["climate_touch_id"] != 30.0 {
		t.Errorf("room = %v", room)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/rooms/9", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown room status = %d", w.Code)
	}
}

func TestRoomClimate(t *testing.T) {
	f := newTestFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/v1/rooms/4/climate", `{"hvac_mode":"heat","setpoint":21.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(f.bridge.climate) != 1 {
		t.Fatalf("climate commands = %d", len(f.bridge.climate))
	}
	cc := f.bridge.climate[0]
	if cc.HvacMode == nil || *cc.HvacMode != device.HvacHeat || cc.Setpoint == nil || *cc.Setpoint != 21.5 || cc.Preset != nil {
		t.Errorf("climate command = %+v", cc)
	}

	tests := []struct {
		name     string
		path     string
		body     string
		cmdErr   error
		wantCode int
	}{
		{"empty", "/api/v1/rooms/4/climate", `{}`, nil, http.StatusBadRequest},
		{"unknown room", "/api/v1/rooms/9/climate", `{"setpoint":20}`, nil, http.StatusNotFound},
		{"climate off", "/api/v1/rooms/4/climate", `{"preset":"eco"}`, device.ErrClimateOff, http.StatusConflict},
		{"bad preset", "/api/v1/rooms/4/climate", `{"preset":"party"}`, device.ErrInvalidClimateMode, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.bridge.cmdErr = tt.cmdErr
			if w := f.do(t, http.MethodPost, tt.path, tt.body); w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestScenes(t *testing.T) {
	f := newTestFixture(t, true)

	body := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/scenes", ""))
	scenes, _ := body["scenes"].([]any)
	if len(scenes) != 2 {
		t.Fatalf("visible scenes = %d, want 2", len(scenes))
	}
	first := scenes[0].(map[string]any)
	if first["name"] != "Morning" || first["device_count"] != 1.0 {
		t.Errorf("first scene = %v, want Morning with one device", first)
	}

	all := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/scenes?all=true", ""))
	if all["count"] != 3.0 {
		t.Errorf("all scenes = %v, want 3", all["count"])
	}

	if w := f.do(t, http.MethodPost, "/api/v1/scenes/1/activate", ""); w.Code != http.StatusAccepted {
		t.Fatalf("activate status = %d", w.Code)
	}
	if len(f.bridge.scenes) != 1 || f.bridge.scenes[0] != 1 {
		t.Errorf("activated = %v", f.bridge.scenes)
	}
	if w := f.do(t, http.MethodPost, "/api/v1/scenes/42/activate", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown scene status = %d", w.Code)
	}
}

func TestHeaterPower(t *testing.T) {
	f := newTestFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/v1/heaters/20/power", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	rd := decodeBody(t, w)
	if rd["power"] != 800.0 || rd["energy_kwh"] != 1.5 || rd["protected"] != true {
		t.Errorf("reading = %v", rd)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/heaters/10/power", ""); w.Code != http.StatusNotFound {
		t.Errorf("non-heater status = %d, want 404", w.Code)
	}
}

func TestListCommands(t *testing.T) {
	f := newTestFixture(t, true)
	f.audit.entries = []audit.Entry{
		{ID: "a", DeviceID: 10, Command: "switch", Source: audit.SourceMQTT, Success: true},
		{ID: "b", DeviceID: 40, Command: "move_up", Source: audit.SourceHTTP, Error: "safety"},
	}

	w := f.do(t, http.MethodGet, "/api/v1/commands?device_id=40&source=http&failed=true&limit=10&offset=0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := f.audit.filter
	if got.DeviceID != 40 || got.Source != audit.SourceHTTP || !got.Failed || got.Limit != 10 {
		t.Errorf("filter = %+v", got)
	}
	if body := decodeBody(t, w); body["total"] != 1.0 {
		t.Errorf("total = %v, want 1", body["total"])
	}

	if w := f.do(t, http.MethodGet, "/api/v1/commands?limit=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", w.Code)
	}

	f.srv.audit = nil
	if w := f.do(t, http.MethodGet, "/api/v1/commands", ""); w.Code != http.StatusNotImplemented {
		t.Errorf("without repository status = %d, want 501", w.Code)
	}
}

func TestBridgeInfo(t *testing.T) {
	f := newTestFixture(t, true)
	body := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/bridge", ""))
	if body["name"] != "Hytta" || body["model"] != "CI" || body["firmware_version"] != "2.1" {
		t.Errorf("bridge = %v", body)
	}
	if body["snapshot_at"] != "2026-01-02T03:04:05Z" {
		t.Errorf("snapshot_at = %v", body["snapshot_at"])
	}
}

func TestSystemMetrics(t *testing.T) {
	f := newTestFixture(t, true)
	body := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/system", ""))
	devices := body["devices"].(map[string]any)
	byKind := devices["by_kind"].(map[string]any)
	if devices["total"] != 6.0 || byKind["rocker"] != 2.0 || devices["scenes"] != 3.0 {
		t.Errorf("devices = %v", devices)
	}
	if body["version"] != "test" {
		t.Errorf("version = %v", body["version"])
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	f := newTestFixture(t, false)
	w := f.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "xcomfort_bridge_up") {
		t.Errorf("metrics = %d %q", w.Code, w.Body.String())
	}

	f.srv.metricsCfg.Enabled = false
	if w := serve(f.srv.buildRouter(), newRequest(http.MethodGet, "/metrics")); w.Code != http.StatusNotFound {
		t.Errorf("disabled metrics status = %d, want 404", w.Code)
	}
}

func TestMiddleware(t *testing.T) {
	f := newTestFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("response has no X-Request-ID")
	}

	req := newRequest(http.MethodOptions, "/api/v1/devices")
	req.Header.Set("Origin", "http://panel.local")
	rec := serve(f.handler, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://panel.local" {
		t.Errorf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	f.srv.cfg.CORS.AllowedOrigins = []string{"http://other"}
	rec = serve(f.srv.buildRouter(), req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin received CORS headers")
	}
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	f := newTestFixture(t, true)
	h := requestID(f.srv.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := serve(h, newRequest(http.MethodGet, "/"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != ErrCodeInternal {
		t.Errorf("body = %v", body)
	}
}

func TestCORSPolicy(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"empty list allows all", nil, "http://a", true},
		{"wildcard", []string{"*"}, "http://a", true},
		{"listed", []string{"http://a", "http://b"}, "http://b", true},
		{"unlisted", []string{"http://a"}, "http://c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newCORSPolicy(config.CORSConfig{AllowedOrigins: tt.origins})
			if got := p.allows(tt.origin); got != tt.want {
				t.Errorf("allows(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

// Run with -race: device views are built on HTTP goroutines while the
// event loop applies feed updates to the same devices.
func TestListDevices_ConcurrentWithUpdates(t *testing.T) {
	f := newTestFixture(t, true)
	rocker, _ := f.bridge.reg.Device(51)
	light, _ := f.bridge.reg.Device(10)
	shade, _ := f.bridge.reg.Device(40)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			rocker.HandleState(device.Payload{"curstate": float64(i % 2)})
			light.HandleState(device.Payload{"switch": i%2 == 0, "dimmvalue": float64(i % 100)})
			shade.HandleState(device.Payload{"shPos": float64(i % 100)})
		}
	}()

	for i := 0; i < 200; i++ {
		w := f.do(t, http.MethodGet, "/api/v1/devices", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	<-done

	got := decodeBody(t, f.do(t, http.MethodGet, "/api/v1/devices/51", ""))
	if got["description"] != "Hall up (Kitchen)" {
		t.Errorf("rocker description = %v", got["description"])
	}
}
