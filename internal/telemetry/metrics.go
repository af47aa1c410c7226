package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xcomfort"

// Metrics holds every collector the core exports.
type Metrics struct {
	deviceOn          *prometheus.GaugeVec
	lightBrightness   *prometheus.GaugeVec
	shadePosition     *prometheus.GaugeVec
	contactClosed     *prometheus.GaugeVec
	heaterDemand      *prometheus.GaugeVec
	heaterTemperature *prometheus.GaugeVec
	sensorTemperature *prometheus.GaugeVec
	sensorHumidity    *prometheus.GaugeVec
	roomTemperature   *prometheus.GaugeVec
	roomHumidity      *prometheus.GaugeVec
	roomSetpoint      *prometheus.GaugeVec
	roomPower         *prometheus.GaugeVec
	power             *prometheus.GaugeVec
	rawPower          *prometheus.GaugeVec
	energy            *prometheus.GaugeVec
	forcedZero        *prometheus.GaugeVec

	feedMessages *prometheus.CounterVec
	requests     *prometheus.CounterVec
	commands     *prometheus.CounterVec
	bridgeUp     prometheus.Gauge
}

func gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deviceOn:          gaugeVec("device_on", "Whether a switchable device is on.", "id", "name", "kind"),
		lightBrightness:   gaugeVec("light_brightness_percent", "Light dim value (0-99).", "id", "name"),
		shadePosition:     gaugeVec("shade_position_percent", "Shade position, 100 is fully closed.", "id", "name"),
		contactClosed:     gaugeVec("contact_closed", "Whether a door or window contact is closed.", "id", "name", "kind"),
		heaterDemand:      gaugeVec("heater_demand_percent", "Heating demand reported by the actuator.", "id", "name"),
		heaterTemperature: gaugeVec("heater_device_temperature_celsius", "Internal temperature of a heating actuator.", "id", "name"),
		sensorTemperature: gaugeVec("sensor_temperature_celsius", "Temperature from an RC Touch or multisensor.", "id", "name"),
		sensorHumidity:    gaugeVec("sensor_humidity_percent", "Humidity from an RC Touch or multisensor.", "id", "name"),
		roomTemperature:   gaugeVec("room_temperature_celsius", "Current room temperature.", "id", "room"),
		roomHumidity:      gaugeVec("room_humidity_percent", "Current room humidity.", "id", "room"),
		roomSetpoint:      gaugeVec("room_setpoint_celsius", "Room target temperature.", "id", "room"),
		roomPower:         gaugeVec("room_power_watts", "Power drawn by a room's heating.", "id", "room"),
		power:             gaugeVec("power_watts", "Corrected power of a tracked source.", "source", "id", "name"),
		rawPower:          gaugeVec("raw_power_watts", "Last power reported by the bridge.", "source", "id", "name"),
		energy:            gaugeVec("energy_kwh", "Accumulated energy of a tracked source.", "source", "id", "name"),
		forcedZero:        gaugeVec("heater_forced_zero", "Whether stale heater power is being overridden.", "id", "name"),

		feedMessages: counterVec("feed_messages_total", "Feed messages processed, by kind.", "kind"),
		requests:     counterVec("requests_total", "Outbound bridge requests, by type and result.", "type", "result"),
		commands:     counterVec("commands_total", "Device commands received, by command and result.", "command", "result"),
		bridgeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bridge_up", Help: "Whether the bridge feed is connected.",
		}),
	}

	reg.MustRegister(
		m.deviceOn, m.lightBrightness, m.shadePosition, m.contactClosed,
		m.heaterDemand, m.heaterTemperature, m.sensorTemperature, m.sensorHumidity,
		m.roomTemperature, m.roomHumidity, m.roomSetpoint, m.roomPower,
		m.power, m.rawPower, m.energy, m.forcedZero,
		m.feedMessages, m.requests, m.commands, m.bridgeUp,
	)
	return m
}

// NewRegistry returns a registry with the Go runtime and build info
// collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewBuildInfoCollector())
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ObserveFeed counts one processed feed message.
func (m *Metrics) ObserveFeed(kind string) {
	m.feedMessages.WithLabelValues(kind).Inc()
}

// ObserveRequest counts one outbound request.
func (m *Metrics) ObserveRequest(msgType string, err error) {
	m.requests.WithLabelValues(msgType, result(err)).Inc()
}

// ObserveCommand counts one device command.
func (m *Metrics) ObserveCommand(command string, err error) {
	m.commands.WithLabelValues(command, result(err)).Inc()
}

// SetBridgeUp records the feed connection state.
func (m *Metrics) SetBridgeUp(up bool) {
	m.bridgeUp.Set(boolValue(up))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func idLabel(id int) string { return strconv.Itoa(id) }
