package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/xcomfort-core/internal/power"
)

// PointWriter accepts InfluxDB points. *influxdb.Client implements it.
type PointWriter interface {
	Write(p *write.Point)
}

// ReadingSource is the part of the power monitor the recorder follows.
type ReadingSource interface {
	Subscribe(fn func(power.Reading)) (unsubscribe func())
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	// Points receives InfluxDB points. Nil disables point export.
	Points PointWriter

	// RoomPower adds room power to room gauges and climate points.
	RoomPower bool

	// Now stamps points. Defaults to time.Now.
	Now func() time.Time
}

// Recorder mirrors emitted state into metrics and points.
type Recorder struct {
	metrics   *Metrics
	points    PointWriter
	roomPower bool
	now       func() time.Time
	unsubs    []func()
}

// NewRecorder returns a recorder writing to m and opts.Points.
func NewRecorder(m *Metrics, opts RecorderOptions) *Recorder {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Recorder{metrics: m, points: opts.Points, roomPower: opts.RoomPower, now: now}
}

// AttachDevices subscribes to the state of every device.
func (r *Recorder) AttachDevices(devices []device.Device) {
	for _, d := range devices {
		r.unsubs = append(r.unsubs, d.SubscribeState(func(s device.State) { r.recordDevice(d, s) }))
	}
}

// AttachRooms subscribes to every room.
func (r *Recorder) AttachRooms(rooms []*device.Room) {
	for _, room := range rooms {
		r.unsubs = append(r.unsubs, room.Subscribe(func(s device.RoomState) { r.recordRoom(room, s) }))
	}
}

// AttachMonitor follows corrected power and energy readings.
func (r *Recorder) AttachMonitor(src ReadingSource) {
	r.unsubs = append(r.unsubs, src.Subscribe(r.recordReading))
}

// Close releases every subscription.
func (r *Recorder) Close() {
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}

func (r *Recorder) write(p *write.Point) {
	if r.points != nil && p != nil {
		r.points.Write(p)
	}
}

func (r *Recorder) recordDevice(d device.Device, s device.State) {
	id, name := idLabel(d.ID()), d.Name()
	m := r.metrics

	switch st := s.(type) {
	case device.LightState:
		m.deviceOn.WithLabelValues(id, name, string(d.Kind())).Set(boolValue(st.SwitchOn))
		m.lightBrightness.WithLabelValues(id, name).Set(float64(st.DimValue))

	case device.SwitchState:
		m.deviceOn.WithLabelValues(id, name, string(d.Kind())).Set(boolValue(st.On))

	case device.ContactState:
		m.contactClosed.WithLabelValues(id, name, string(d.Kind())).Set(boolValue(st.Closed))

	case device.ShadeState:
		if st.Position == nil {
			return
		}
		m.shadePosition.WithLabelValues(id, name).Set(float64(*st.Position))
		safety := st.SafetyEnabled != nil && *st.SafetyEnabled
		r.write(influxdb.ShadePoint(d.ID(), name, *st.Position, safety, r.now()))

	case device.HeaterState:
		if st.HeatingDemandPct != nil {
			m.heaterDemand.WithLabelValues(id, name).Set(*st.HeatingDemandPct)
		}
		if st.DeviceTempC != nil {
			m.heaterTemperature.WithLabelValues(id, name).Set(*st.DeviceTempC)
		}

	case device.ClimateTouchState:
		m.sensorTemperature.WithLabelValues(id, name).Set(st.TemperatureC)
		m.sensorHumidity.WithLabelValues(id, name).Set(st.HumidityPct)
		temp, hum := st.TemperatureC, st.HumidityPct
		r.write(influxdb.ClimatePoint(influxdb.Climate{
			Scope: "sensor", ID: d.ID(), Name: name,
			TemperatureC: &temp, HumidityPct: &hum, At: r.now(),
		}))

	case device.RockerState:
		if st.Sensor == nil {
			return
		}
		if st.Sensor.TemperatureC != nil {
			m.sensorTemperature.WithLabelValues(id, name).Set(*st.Sensor.TemperatureC)
		}
		if st.Sensor.HumidityPct != nil {
			m.sensorHumidity.WithLabelValues(id, name).Set(*st.Sensor.HumidityPct)
		}
		r.write(influxdb.ClimatePoint(influxdb.Climate{
			Scope: "sensor", ID: d.ID(), Name: name,
			TemperatureC: st.Sensor.TemperatureC, HumidityPct: st.Sensor.HumidityPct, At: r.now(),
		}))
	}
}

func (r *Recorder) recordRoom(room *device.Room, s device.RoomState) {
	id, name := idLabel(room.ID()), room.Name()
	m := r.metrics

	if s.TemperatureC != nil {
		m.roomTemperature.WithLabelValues(id, name).Set(*s.TemperatureC)
	}
	if s.HumidityPct != nil {
		m.roomHumidity.WithLabelValues(id, name).Set(*s.HumidityPct)
	}
	if s.Setpoint != nil {
		m.roomSetpoint.WithLabelValues(id, name).Set(*s.Setpoint)
	}

	var powerW *float64
	if r.roomPower && s.PowerW != nil {
		powerW = s.PowerW
		m.roomPower.WithLabelValues(id, name).Set(*s.PowerW)
	}
	r.write(influxdb.ClimatePoint(influxdb.Climate{
		Scope: "room", ID: room.ID(), Name: name,
		TemperatureC: s.TemperatureC, HumidityPct: s.HumidityPct, PowerW: powerW, At: r.now(),
	}))
}

func (r *Recorder) recordReading(rd power.Reading) {
	source, id := string(rd.Kind), idLabel(rd.ID)
	m := r.metrics

	m.power.WithLabelValues(source, id, rd.Name).Set(rd.PowerW)
	m.rawPower.WithLabelValues(source, id, rd.Name).Set(rd.RawPowerW)
	m.energy.WithLabelValues(source, id, rd.Name).Set(rd.EnergyKWh)
	if rd.Protected {
		m.forcedZero.WithLabelValues(id, rd.Name).Set(boolValue(rd.ForcedZero))
	}

	at := rd.At
	if at.IsZero() {
		at = r.now()
	}
	r.write(influxdb.EnergyPoint(influxdb.Energy{
		Source:    source,
		ID:        rd.ID,
		Name:      rd.Name,
		PowerW:    rd.PowerW,
		RawPowerW: rd.RawPowerW,
		EnergyKWh: rd.EnergyKWh,
		Protected: rd.Protected,
		At:        at,
	}))
}
