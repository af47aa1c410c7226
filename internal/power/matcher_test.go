package power

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Varmekabel Bad", "bad"},
		{"  PANELOVN Stue ", "stue"},
		{"Heater Kitchen", "kitchen"},
		{"heater varmekabel bad", "varmekabel bad"},
		{"Bedroom", "bedroom"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatcher(t *testing.T) {
	rooms := []RoomRef{
		{ID: 3, Name: "Stue"},
		{ID: 1, Name: "Bad"},
		{ID: 2, Name: "Bad oppe"},
		{ID: 4, Name: "Kontor"},
	}
	m := NewMatcher(rooms, map[int]int{900: 4, 901: 99})

	tests := []struct {
		name     string
		heaterID int
		heater   string
		wantID   int
		wantOK   bool
	}{
		{"exact after prefix strip", 10, "Varmekabel Bad", 1, true},
		{"exact beats containment", 11, "Varmekabel Bad oppe", 2, true},
		{"heater name extends room name", 12, "Panelovn Stue vest", 3, true},
		{"room name extends heater name", 13, "Heater Kont", 4, true},
		{"override wins", 900, "Varmekabel Bad", 4, true},
		{"override to unknown room falls back to name", 901, "Panelovn Stue", 3, true},
		{"no match", 14, "Garage", 0, false},
		{"bare prefix word", 15, "Heater ", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := m.Match(tt.heaterID, tt.heater)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("Match(%d, %q) = %d, %v; want %d, %v", tt.heaterID, tt.heater, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestMatcher_ContainmentPrefersLowestRoomID(t *testing.T) {
	m := NewMatcher([]RoomRef{{ID: 7, Name: "Bad oppe"}, {ID: 5, Name: "Bad nede"}}, nil)
	if id, ok := m.Match(1, "Varmekabel Bad"); !ok || id != 5 {
		t.Errorf("Match() = %d, %v; want 5, true", id, ok)
	}
}
