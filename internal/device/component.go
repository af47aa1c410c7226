package device

import (
	"sort"

	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// ComponentState is the accumulated payload of a component.
type ComponentState struct {
	Payload Payload `json:"raw"`
}

// Raw implements State.
func (s ComponentState) Raw() Payload { return s.Payload }

// Component is a physical unit grouping one or more devices.
type Component struct {
	rec  ComponentRecord
	cell *statecell.Cell[ComponentState]
}

// NewComponent creates a component from its snapshot record.
func NewComponent(rec ComponentRecord) *Component {
	return &Component{rec: rec, cell: statecell.New[ComponentState]()}
}

// ID returns the component id.
func (c *Component) ID() int { return c.rec.ID }

// Name returns the component name.
func (c *Component) Name() string { return c.rec.Name }

// Type returns the component type code.
func (c *Component) Type() CompType { return c.rec.CompType }

// HandleState merges a partial payload into the component state.
func (c *Component) HandleState(p Payload) {
	prev, _ := c.cell.Current()
	c.cell.Emit(ComponentState{Payload: prev.Payload.Merge(p)})
}

// Subscribe registers fn with replay-then-live semantics.
func (c *Component) Subscribe(fn func(ComponentState)) func() { return c.cell.Subscribe(fn) }

// Current returns the last component state.
func (c *Component) Current() (ComponentState, bool) { return c.cell.Current() }

// Close drops every subscriber.
func (c *Component) Close() { c.cell.Clear() }

// Channel is one addressable button or sensor of a component.
type Channel struct {
	Number   int    `json:"channel"`
	DeviceID int    `json:"device_id"`
	Name     string `json:"name"`
}

// ChannelGroup is the UI-facing grouping of a component's rockers.
type ChannelGroup struct {
	ComponentID int       `json:"component_id"`
	Name        string    `json:"name"`
	Model       string    `json:"model"`
	MultiSensor bool      `json:"multi_sensor"`
	Channels    []Channel `json:"channels"`
}

// AssignChannels orders devices by ascending id and numbers them 1..N.
func AssignChannels(devices []Device) []Channel {
	sorted := make([]Device, len(devices))
	copy(sorted, devices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	channels := make([]Channel, len(sorted))
	for i, d := range sorted {
		channels[i] = Channel{Number: i + 1, DeviceID: d.ID(), Name: d.Name()}
	}
	return channels
}

// GroupRockers builds channel groups for every component owning rockers.
// Rockers of multi-channel components share one group with numbered
// channels; rockers of single-channel components get a group each with a
// single channel 1. Rockers without a known component are skipped.
func GroupRockers(dir Directory, rockers []*Rocker) []ChannelGroup {
	byComp := make(map[int][]Device)
	var order []int
	for _, r := range rockers {
		compID := r.ComponentID()
		if _, ok := dir.Component(compID); !ok {
			continue
		}
		if _, seen := byComp[compID]; !seen {
			order = append(order, compID)
		}
		byComp[compID] = append(byComp[compID], r)
	}
	sort.Ints(order)

	var groups []ChannelGroup
	for _, compID := range order {
		comp, _ := dir.Component(compID)
		members := byComp[compID]
		if comp.Type().IsMultiChannel() {
			groups = append(groups, ChannelGroup{
				ComponentID: compID,
				Name:        comp.Name(),
				Model:       comp.Type().Model(),
				MultiSensor: comp.Type().IsMultiSensor(),
				Channels:    AssignChannels(members),
			})
			continue
		}
		for _, m := range AssignChannels(members) {
			m.Number = 1
			groups = append(groups, ChannelGroup{
				ComponentID: compID,
				Name:        comp.Name(),
				Model:       comp.Type().Model(),
				MultiSensor: comp.Type().IsMultiSensor(),
				Channels:    []Channel{m},
			})
		}
	}
	return groups
}
