package power

import (
	"sort"
	"strings"
)

// heaterNamePrefixes are stripped before matching heater names to rooms.
// The first matching prefix wins.
var heaterNamePrefixes = []string{"varmekabel ", "panelovn ", "heater "}

// NormalizeName lowercases and trims name and strips a known heater prefix.
func NormalizeName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range heaterNamePrefixes {
		if strings.HasPrefix(key, prefix) {
			return key[len(prefix):]
		}
	}
	return key
}

// RoomRef identifies a candidate room for matching.
type RoomRef struct {
	ID   int
	Name string
}

// Matcher associates heaters with rooms.
//
// Explicit overrides win. Otherwise the normalised heater name is matched
// against normalised room names: exact first, then prefix containment in
// either direction, scanning rooms by ascending id.
type Matcher struct {
	byKey     map[string]int
	ordered   []roomKey
	overrides map[int]int
	known     map[int]struct{}
}

type roomKey struct {
	id  int
	key string
}

// NewMatcher builds a matcher over rooms. overrides maps heater device id
// to room id.
func NewMatcher(rooms []RoomRef, overrides map[int]int) *Matcher {
	sorted := make([]RoomRef, len(rooms))
	copy(sorted, rooms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	m := &Matcher{
		byKey:     make(map[string]int, len(sorted)),
		overrides: make(map[int]int, len(overrides)),
		known:     make(map[int]struct{}, len(sorted)),
	}
	for _, r := range sorted {
		key := NormalizeName(r.Name)
		if _, dup := m.byKey[key]; !dup {
			m.byKey[key] = r.ID
		}
		m.ordered = append(m.ordered, roomKey{id: r.ID, key: key})
		m.known[r.ID] = struct{}{}
	}
	for heater, room := range overrides {
		m.overrides[heater] = room
	}
	return m
}

// Match returns the room for a heater.
func (m *Matcher) Match(heaterID int, heaterName string) (roomID int, ok bool) {
	if id, ok := m.overrides[heaterID]; ok {
		if _, exists := m.known[id]; exists {
			return id, true
		}
	}

	key := NormalizeName(heaterName)
	if id, ok := m.byKey[key]; ok {
		return id, true
	}
	if key == "" {
		return 0, false
	}
	for _, r := range m.ordered {
		if r.key == "" {
			continue
		}
		if strings.HasPrefix(key, r.key) || strings.HasPrefix(r.key, key) {
			return r.id, true
		}
	}
	return 0, false
}
