package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicRoot is the first segment of every xComfort topic.
const TopicRoot = "xcomfort"

// Topics builds the topic names used between the relay, the core and
// downstream consumers.
//
//	xcomfort/feed/{bridge}/snapshot|update|request
//	xcomfort/state/device/{id}
//	xcomfort/state/room/{id}
//	xcomfort/state/heater/{id}/power
//	xcomfort/event/device/{id}
//	xcomfort/command/device/{id}
//	xcomfort/ack/device/{id}
//	xcomfort/health/{bridge}
//	xcomfort/system/status
type Topics struct{}

// FeedSnapshot carries the bulk snapshot document from the relay.
func (Topics) FeedSnapshot(bridge string) string {
	return fmt.Sprintf("%s/feed/%s/snapshot", TopicRoot, bridge)
}

// FeedUpdate carries incremental device, component and room updates.
func (Topics) FeedUpdate(bridge string) string {
	return fmt.Sprintf("%s/feed/%s/update", TopicRoot, bridge)
}

// FeedRequest carries outbound requests for the relay to forward.
func (Topics) FeedRequest(bridge string) string {
	return fmt.Sprintf("%s/feed/%s/request", TopicRoot, bridge)
}

// DeviceState is the retained state of one device.
func (Topics) DeviceState(deviceID int) string {
	return fmt.Sprintf("%s/state/device/%d", TopicRoot, deviceID)
}

// DeviceEvent carries button events of one device. Not retained.
func (Topics) DeviceEvent(deviceID int) string {
	return fmt.Sprintf("%s/event/device/%d", TopicRoot, deviceID)
}

// RoomState is the retained state of one room.
func (Topics) RoomState(roomID int) string {
	return fmt.Sprintf("%s/state/room/%d", TopicRoot, roomID)
}

// HeaterPower is the retained corrected power reading of one heater.
func (Topics) HeaterPower(deviceID int) string {
	return fmt.Sprintf("%s/state/heater/%d/power", TopicRoot, deviceID)
}

// DeviceCommand receives commands for one device.
func (Topics) DeviceCommand(deviceID int) string {
	return fmt.Sprintf("%s/command/device/%d", TopicRoot, deviceID)
}

// AllDeviceCommands matches the command topic of every device.
func (Topics) AllDeviceCommands() string {
	return TopicRoot + "/command/device/+"
}

// DeviceAck carries the outcome of a device command.
func (Topics) DeviceAck(deviceID int) string {
	return fmt.Sprintf("%s/ack/device/%d", TopicRoot, deviceID)
}

// BridgeHealth carries periodic health reports of a bridge.
func (Topics) BridgeHealth(bridge string) string {
	return fmt.Sprintf("%s/health/%s", TopicRoot, bridge)
}

// SystemStatus carries the online/offline status of the core. The LWT is
// registered on this topic.
func (Topics) SystemStatus() string {
	return TopicRoot + "/system/status"
}

// ParseDeviceID extracts the trailing device id from a device-scoped topic
// such as xcomfort/command/device/12.
func ParseDeviceID(topic string) (int, error) {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	id, err := strconv.Atoi(topic[idx+1:])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return id, nil
}
