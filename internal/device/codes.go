package device

// DevType is the bridge's numeric device type code (the devType field).
type DevType int

// Device type codes as reported by the bridge.
const (
	DevTypeActuatorSwitch  DevType = 100
	DevTypeActuatorDimm    DevType = 101
	DevTypeShading         DevType = 102
	DevTypeWindowSensor    DevType = 202
	DevTypeDoorSensor      DevType = 203
	DevTypePushButton      DevType = 220
	DevTypeHeatingActuator DevType = 440
	DevTypeRCTouch         DevType = 450
)

// CompType is the bridge's numeric component type code (the compType field).
type CompType int

// Component type codes as reported by the bridge.
const (
	CompTypePushButton1      CompType = 1
	CompTypePushButton2      CompType = 2
	CompTypePushButton4      CompType = 3
	CompTypeRCTouch          CompType = 78
	CompTypeShadingActuator  CompType = 86
	CompTypePushButtonMulti1 CompType = 87
	CompTypePushButtonMulti2 CompType = 88
	CompTypePushButtonMulti4 CompType = 89
)

// IsMultiSensor reports whether the component is a push button with a
// built-in temperature/humidity sensor.
func (t CompType) IsMultiSensor() bool {
	switch t {
	case CompTypePushButtonMulti1, CompTypePushButtonMulti2, CompTypePushButtonMulti4:
		return true
	}
	return false
}

// ChannelCount returns the number of independent channels of a component
// type. Single-channel types return 1.
func (t CompType) ChannelCount() int {
	switch t {
	case CompTypePushButton2, CompTypePushButtonMulti2:
		return 2
	case CompTypePushButton4, CompTypePushButtonMulti4:
		return 4
	}
	return 1
}

// IsMultiChannel reports whether the component groups several channels.
func (t CompType) IsMultiChannel() bool {
	return t.ChannelCount() > 1
}

// Model returns a human-readable model name for known component types.
func (t CompType) Model() string {
	switch t {
	case CompTypePushButton1:
		return "1-Channel Pushbutton"
	case CompTypePushButton2:
		return "2-Channel Pushbutton"
	case CompTypePushButton4:
		return "4-Channel Pushbutton"
	case CompTypePushButtonMulti1:
		return "1-Channel Pushbutton Multi Sensor"
	case CompTypePushButtonMulti2:
		return "2-Channel Pushbutton Multi Sensor"
	case CompTypePushButtonMulti4:
		return "4-Channel Pushbutton Multi Sensor"
	case CompTypeRCTouch:
		return "RC Touch"
	case CompTypeShadingActuator:
		return "Shading Actuator"
	}
	return "Unknown"
}

// InfoCode identifies a measurement inside a payload's info array.
type InfoCode int

// Info codes carried in the info array of device payloads.
const (
	InfoDimmValue          InfoCode = 1101
	InfoDeviceTemperature  InfoCode = 1109
	InfoAmbientTemperature InfoCode = 1222
	InfoHumidity           InfoCode = 1223
)

// MessageType is the bridge message type of an outbound request.
type MessageType int

// Outbound request message types.
const (
	MsgActionSwitchDevice    MessageType = 281
	MsgActionSlideDevice     MessageType = 282
	MsgSetDeviceShadingState MessageType = 283
	MsgActivateScene         MessageType = 285
	MsgSetHeatingState       MessageType = 353
)

// String returns the symbolic name of the message type.
func (m MessageType) String() string {
	switch m {
	case MsgActionSwitchDevice:
		return "ACTION_SWITCH_DEVICE"
	case MsgActionSlideDevice:
		return "ACTION_SLIDE_DEVICE"
	case MsgSetDeviceShadingState:
		return "SET_DEVICE_SHADING_STATE"
	case MsgActivateScene:
		return "ACTIVATE_SCENE"
	case MsgSetHeatingState:
		return "SET_HEATING_STATE"
	}
	return "UNKNOWN"
}

// ShadeOperation is the state value of a shading request.
type ShadeOperation int

// Shade operations understood by SET_DEVICE_SHADING_STATE.
const (
	ShadeOpen  ShadeOperation = 0
	ShadeClose ShadeOperation = 1
	ShadeStop  ShadeOperation = 2
	ShadeGoTo  ShadeOperation = 3
)

// Button event names.
const (
	EventPressUp   = "press_up"
	EventPressDown = "press_down"
	EventOn        = "on"
	EventOff       = "off"
)
