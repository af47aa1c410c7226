package device

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DeviceRecord is one device entry of the bridge snapshot.
type DeviceRecord struct {
	ID       int     `mapstructure:"deviceId" json:"id"`
	Name     string  `mapstructure:"name" json:"name"`
	DevType  DevType `mapstructure:"devType" json:"dev_type"`
	CompID   int     `mapstructure:"compId" json:"component_id,omitempty"`
	Dimmable bool    `mapstructure:"dimmable" json:"dimmable"`
	Payload  Payload `mapstructure:"-" json:"-"`
}

// ComponentRecord is one component entry of the bridge snapshot.
type ComponentRecord struct {
	ID       int      `mapstructure:"compId" json:"id"`
	Name     string   `mapstructure:"name" json:"name"`
	CompType CompType `mapstructure:"compType" json:"comp_type"`
	Payload  Payload  `mapstructure:"-" json:"-"`
}

// RoomRecord is one room entry of the bridge snapshot.
type RoomRecord struct {
	ID      int     `mapstructure:"roomId" json:"id"`
	Name    string  `mapstructure:"name" json:"name"`
	Payload Payload `mapstructure:"-" json:"-"`
}

// SceneRecord is one scene entry of the bridge snapshot.
type SceneRecord struct {
	ID      int     `mapstructure:"sceneId" json:"id"`
	Name    string  `mapstructure:"name" json:"name"`
	Payload Payload `mapstructure:"-" json:"-"`
}

// BridgeInfo describes the bridge itself.
type BridgeInfo struct {
	ID              string `mapstructure:"id" json:"id"`
	Name            string `mapstructure:"name" json:"name"`
	Model           string `mapstructure:"bridgeModel" json:"model"`
	FirmwareVersion string `mapstructure:"firmwareVersion" json:"firmware_version"`
}

// Snapshot is the decoded initial bulk state of the bridge.
type Snapshot struct {
	Bridge     BridgeInfo
	Devices    []DeviceRecord
	Components []ComponentRecord
	Rooms      []RoomRecord
	Scenes     []SceneRecord
}

// DecodeSnapshot converts the loosely-typed snapshot document into records.
//
// The document is an object with optional "bridge", "devices", "comps",
// "rooms" and "scenes" keys. Numeric fields may arrive as JSON numbers or
// strings. Records that cannot be decoded or lack an id are rejected.
func DecodeSnapshot(doc map[string]any) (*Snapshot, error) {
	snap := &Snapshot{}

	if bridge, ok := doc["bridge"].(map[string]any); ok {
		if err := decodeRecord(bridge, &snap.Bridge); err != nil {
			return nil, fmt.Errorf("decoding bridge: %w", err)
		}
	}

	for i, item := range listOf(doc, "devices") {
		var rec DeviceRecord
		if err := decodeRecord(item, &rec); err != nil {
			return nil, fmt.Errorf("decoding device %d: %w", i, err)
		}
		if rec.ID == 0 {
			return nil, fmt.Errorf("%w: device %d has no deviceId", ErrInvalidSnapshot, i)
		}
		rec.Payload = Payload(item).Clone()
		snap.Devices = append(snap.Devices, rec)
	}

	for i, item := range listOf(doc, "comps") {
		var rec ComponentRecord
		if err := decodeRecord(item, &rec); err != nil {
			return nil, fmt.Errorf("decoding component %d: %w", i, err)
		}
		if rec.ID == 0 {
			return nil, fmt.Errorf("%w: component %d has no compId", ErrInvalidSnapshot, i)
		}
		rec.Payload = Payload(item).Clone()
		snap.Components = append(snap.Components, rec)
	}

	for i, item := range listOf(doc, "rooms") {
		var rec RoomRecord
		if err := decodeRecord(item, &rec); err != nil {
			return nil, fmt.Errorf("decoding room %d: %w", i, err)
		}
		if rec.ID == 0 {
			return nil, fmt.Errorf("%w: room %d has no roomId", ErrInvalidSnapshot, i)
		}
		rec.Payload = Payload(item).Clone()
		snap.Rooms = append(snap.Rooms, rec)
	}

	for i, item := range listOf(doc, "scenes") {
		var rec SceneRecord
		if err := decodeRecord(item, &rec); err != nil {
			return nil, fmt.Errorf("decoding scene %d: %w", i, err)
		}
		if rec.ID == 0 {
			return nil, fmt.Errorf("%w: scene %d has no sceneId", ErrInvalidSnapshot, i)
		}
		rec.Payload = Payload(item).Clone()
		snap.Scenes = append(snap.Scenes, rec)
	}

	return snap, nil
}

func decodeRecord(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return nil
}

func listOf(doc map[string]any, key string) []map[string]any {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
