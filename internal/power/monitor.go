package power

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// persistTimeout bounds the final save when the persistence loop stops.
const persistTimeout = 5 * time.Second

// Logger defines the logging interface used by the power package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config selects which sources the monitor tracks and tunes stale
// heater protection.
type Config struct {
	HeaterPower     bool
	RoomPower       bool
	LightPower      bool
	StaleProtection bool
	ThresholdW      float64
	ZeroWindow      time.Duration

	// HeaterRoomMap maps heater device id to room id and overrides name
	// matching.
	HeaterRoomMap map[int]int
}

// Source is the part of the device registry the monitor reads.
type Source interface {
	Heaters() []*device.Heater
	Lights() []*device.Light
	Rooms() []*device.Room
	Room(id int) (*device.Room, bool)
}

// Options carries the monitor's collaborators.
type Options struct {
	Logger Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Initial holds energy totals restored from a Store.
	Initial map[Key]float64
}

type channel struct {
	key      Key
	name     string
	raw      *float64
	watchdog *Watchdog
	roomID   int
	energy   *Integrator
	cell     *statecell.Cell[Reading]
}

func (ch *channel) corrected() float64 {
	if ch.watchdog != nil {
		if v, ok := ch.watchdog.Corrected(); ok {
			return v
		}
	}
	if ch.raw != nil {
		return *ch.raw
	}
	return 0
}

func (ch *channel) reading(now time.Time) Reading {
	r := Reading{
		Kind:      ch.key.Kind,
		ID:        ch.key.ID,
		Name:      ch.name,
		PowerW:    ch.corrected(),
		EnergyKWh: ch.energy.TotalKWh(),
		At:        now,
	}
	if ch.raw != nil {
		r.RawPowerW = *ch.raw
	}
	if ch.watchdog != nil {
		r.Protected = true
		r.RoomID = ch.roomID
		r.ForcedZero = ch.watchdog.ForcedZero()
		if since, ok := ch.watchdog.RoomZeroSince(); ok {
			r.RoomZeroSince = &since
		}
	}
	return r
}

// Monitor publishes corrected power and accumulated energy for heaters,
// rooms and lights.
type Monitor struct {
	cfg    Config
	logger Logger
	now    func() time.Time

	// mu guards channel state. Channel cells emit outside the lock.
	mu       sync.Mutex
	channels map[Key]*channel
	order    []Key
	unsubs   []func()
}

// NewMonitor builds channels for every enabled source in src and
// subscribes to their state cells.
func NewMonitor(cfg Config, src Source, opts Options) *Monitor {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Monitor{
		cfg:      cfg,
		logger:   opts.Logger,
		now:      opts.Now,
		channels: make(map[Key]*channel),
	}

	if cfg.HeaterPower {
		m.addHeaters(src, opts.Initial)
	}
	if cfg.RoomPower {
		for _, room := range src.Rooms() {
			ch := m.addChannel(Key{Kind: SourceRoom, ID: room.ID()}, room.Name(), opts.Initial)
			m.unsubs = append(m.unsubs, room.Subscribe(func(s device.RoomState) { m.onPower(ch, s.PowerW) }))
		}
	}
	if cfg.LightPower {
		for _, light := range src.Lights() {
			ch := m.addChannel(Key{Kind: SourceLight, ID: light.ID()}, light.Name(), opts.Initial)
			m.unsubs = append(m.unsubs, light.Subscribe(func(s device.LightState) { m.onPower(ch, s.PowerW) }))
		}
	}
	return m
}

func (m *Monitor) addHeaters(src Source, initial map[Key]float64) {
	var matcher *Matcher
	if m.cfg.StaleProtection {
		rooms := src.Rooms()
		refs := make([]RoomRef, len(rooms))
		for i, r := range rooms {
			refs[i] = RoomRef{ID: r.ID(), Name: r.Name()}
		}
		matcher = NewMatcher(refs, m.cfg.HeaterRoomMap)
	}

	mapped, unmatched := 0, 0
	for _, heater := range src.Heaters() {
		ch := m.addChannel(Key{Kind: SourceHeater, ID: heater.ID()}, heater.Name(), initial)

		if matcher != nil {
			var room *device.Room
			if roomID, ok := matcher.Match(heater.ID(), heater.Name()); ok {
				room, _ = src.Room(roomID)
			}
			if room == nil {
				unmatched++
				m.logger.Info("heater room mapping", "heater", heater.Name(), "room", "(no match)")
			} else {
				mapped++
				m.logger.Info("heater room mapping", "heater", heater.Name(), "room", room.Name())
				ch.roomID = room.ID()
				ch.watchdog = NewWatchdog(WatchdogConfig{
					ThresholdW: m.cfg.ThresholdW,
					Window:     m.cfg.ZeroWindow,
					Now:        m.now,
					Heater:     heater.Name(),
					Room:       room.Name(),
				}, m.logger)
				m.unsubs = append(m.unsubs, room.Subscribe(func(s device.RoomState) { m.onWatchdogRoom(ch, s) }))
			}
		}

		m.unsubs = append(m.unsubs, heater.Subscribe(func(s device.HeaterState) { m.onPower(ch, s.PowerW) }))
	}
	if matcher != nil {
		m.logger.Info("heater stale protection configured", "mapped", mapped, "unmatched", unmatched)
	}
}

func (m *Monitor) addChannel(key Key, name string, initial map[Key]float64) *channel {
	ch := &channel{
		key:    key,
		name:   name,
		energy: NewIntegrator(initial[key]),
		cell:   statecell.New[Reading](),
	}
	m.channels[key] = ch
	m.order = append(m.order, key)
	return ch
}

func (m *Monitor) onPower(ch *channel, powerW *float64) {
	if powerW == nil {
		return
	}
	m.mu.Lock()
	p := *powerW
	ch.raw = &p
	if ch.watchdog != nil {
		ch.watchdog.ObserveHeater(p)
	}
	r := m.sample(ch)
	m.mu.Unlock()

	ch.cell.Emit(r)
}

func (m *Monitor) onWatchdogRoom(ch *channel, s device.RoomState) {
	if s.PowerW == nil {
		return
	}
	m.mu.Lock()
	changed := ch.watchdog.ObserveRoom(*s.PowerW)
	if !changed || ch.raw == nil {
		m.mu.Unlock()
		return
	}
	r := m.sample(ch)
	m.mu.Unlock()

	ch.cell.Emit(r)
}

// sample integrates the channel up to now and returns its reading.
// Callers hold m.mu.
func (m *Monitor) sample(ch *channel) Reading {
	now := m.now()
	ch.energy.Sample(ch.corrected(), now)
	return ch.reading(now)
}

// Tick re-evaluates every watchdog and advances every integrator. Channels
// whose forced zero flag changed publish a new reading.
func (m *Monitor) Tick() {
	now := m.now()
	var emits []*channel
	var readings []Reading

	m.mu.Lock()
	for _, key := range m.order {
		ch := m.channels[key]
		if ch.raw == nil {
			continue
		}
		if ch.watchdog != nil && ch.watchdog.Tick() {
			emits = append(emits, ch)
			readings = append(readings, m.sample(ch))
			continue
		}
		ch.energy.Advance(now)
	}
	m.mu.Unlock()

	for i, ch := range emits {
		ch.cell.Emit(readings[i])
	}
}

// Reading returns the last published reading of a source.
func (m *Monitor) Reading(key Key) (Reading, error) {
	ch, ok := m.channels[key]
	if !ok {
		return Reading{}, ErrUnknownSource
	}
	r, ok := ch.cell.Current()
	if !ok {
		return Reading{Kind: key.Kind, ID: key.ID, Name: ch.name, Protected: ch.watchdog != nil, RoomID: ch.roomID}, nil
	}
	return r, nil
}

// Readings returns the last reading of every tracked source that has
// reported power, in tracking order.
func (m *Monitor) Readings() []Reading {
	out := make([]Reading, 0, len(m.order))
	for _, key := range m.order {
		if r, ok := m.channels[key].cell.Current(); ok {
			out = append(out, r)
		}
	}
	return out
}

// Subscribe registers fn for readings of every tracked source, with
// replay-then-live semantics per source.
func (m *Monitor) Subscribe(fn func(Reading)) (unsubscribe func()) {
	unsubs := make([]func(), 0, len(m.order))
	for _, key := range m.order {
		unsubs = append(unsubs, m.channels[key].cell.Subscribe(fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Totals returns the accumulated energy of every source.
func (m *Monitor) Totals() map[Key]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Key]float64, len(m.channels))
	for key, ch := range m.channels {
		out[key] = ch.energy.TotalKWh()
	}
	return out
}

// Close releases every subscription and drops reading subscribers.
func (m *Monitor) Close() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	for _, ch := range m.channels {
		ch.cell.Clear()
	}
}

// RunPersistence saves the monitor's totals to store every interval
// until ctx is cancelled, then saves once more.
func (m *Monitor) RunPersistence(ctx context.Context, store Store, interval time.Duration) error {
	return RunPersistence(ctx, m, store, interval, m.logger)
}

// TotalsSource reports accumulated energy per source.
type TotalsSource interface {
	Totals() map[Key]float64
}

// RunPersistence saves src.Totals() to store every interval until ctx is
// cancelled, then saves once more with a fresh deadline.
func RunPersistence(ctx context.Context, src TotalsSource, store Store, interval time.Duration, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			totals := src.Totals()
			if err := store.SaveTotals(saveCtx, totals); err != nil {
				logger.Error("final energy totals save failed", "error", err)
				return err
			}
			logger.Info("energy totals saved", "sources", len(totals))
			return nil
		case <-ticker.C:
			if err := store.SaveTotals(ctx, src.Totals()); err != nil {
				logger.Warn("saving energy totals failed", "error", err)
			}
		}
	}
}
