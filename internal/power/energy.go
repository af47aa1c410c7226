package power

import "time"

const wattSecondsPerKWh = 3_600_000

// EnergyKWh converts a constant power over a duration to kilowatt-hours.
func EnergyKWh(powerW float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return powerW * elapsed.Seconds() / wattSecondsPerKWh
}

// Integrator accumulates energy from a piecewise-constant power signal.
// Each sample's power is held until the next sample.
type Integrator struct {
	totalKWh float64
	powerW   float64
	last     time.Time
	started  bool
}

// NewIntegrator creates an integrator starting at initialKWh.
func NewIntegrator(initialKWh float64) *Integrator {
	return &Integrator{totalKWh: initialKWh}
}

// Sample records powerW at time at, first adding the energy of the
// previous power held since the previous sample. Samples older than the
// previous one only update the held power.
func (i *Integrator) Sample(powerW float64, at time.Time) {
	if i.started && at.After(i.last) {
		i.totalKWh += EnergyKWh(i.powerW, at.Sub(i.last))
	}
	if !i.started || at.After(i.last) {
		i.last = at
	}
	i.powerW = powerW
	i.started = true
}

// Advance accumulates up to at while keeping the held power.
func (i *Integrator) Advance(at time.Time) {
	if !i.started {
		return
	}
	i.Sample(i.powerW, at)
}

// TotalKWh returns the accumulated energy.
func (i *Integrator) TotalKWh() float64 { return i.totalKWh }
