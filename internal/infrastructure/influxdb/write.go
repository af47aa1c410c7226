package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEnergy  = "energy"
	MeasurementClimate = "climate"
	MeasurementShade   = "shade"
)

// Energy is one power/energy sample of a heater, room or light.
type Energy struct {
	Source    string
	ID        int
	Name      string
	PowerW    float64
	RawPowerW float64
	EnergyKWh float64
	Protected bool
	At        time.Time
}

// EnergyPoint builds the energy point for e.
func EnergyPoint(e Energy) *write.Point {
	return write.NewPoint(MeasurementEnergy,
		map[string]string{
			"source": e.Source,
			"id":     strconv.Itoa(e.ID),
			"name":   e.Name,
		},
		map[string]any{
			"power_w":     e.PowerW,
			"raw_power_w": e.RawPowerW,
			"energy_kwh":  e.EnergyKWh,
			"protected":   e.Protected,
		},
		e.At)
}

// Climate is a temperature/humidity sample of a room or sensor. Nil
// fields are left out of the point.
type Climate struct {
	Scope        string
	ID           int
	Name         string
	TemperatureC *float64
	HumidityPct  *float64
	PowerW       *float64
	At           time.Time
}

// ClimatePoint builds the climate point for c, or nil when c carries no
// values at all.
func ClimatePoint(c Climate) *write.Point {
	fields := make(map[string]any, 3)
	if c.TemperatureC != nil {
		fields["temperature_c"] = *c.TemperatureC
	}
	if c.HumidityPct != nil {
		fields["humidity_pct"] = *c.HumidityPct
	}
	if c.PowerW != nil {
		fields["power_w"] = *c.PowerW
	}
	if len(fields) == 0 {
		return nil
	}
	return write.NewPoint(MeasurementClimate,
		map[string]string{
			"scope": c.Scope,
			"id":    strconv.Itoa(c.ID),
			"name":  c.Name,
		},
		fields, c.At)
}

// ShadePoint builds the shade point for a known position.
func ShadePoint(id int, name string, position int, safety bool, at time.Time) *write.Point {
	return write.NewPoint(MeasurementShade,
		map[string]string{"id": strconv.Itoa(id), "name": name},
		map[string]any{"position": position, "safety": safety},
		at)
}
