// Package statecell provides a latest-value publish/subscribe primitive.
//
// A Cell holds at most one value: the last one emitted. Subscribers added
// after a value exists receive it immediately (replay) and then every
// subsequent emission (live). There is no buffering: a subscriber that joins
// after several emissions only ever sees the latest.
//
// # Thread Safety
//
// Emit and Subscribe are serialised per cell so that a subscriber never
// observes an older value after a newer one. Current may be called from any
// goroutine. A callback must not call Emit or Subscribe on the cell that is
// invoking it; it may freely use other cells and may unsubscribe itself.
package statecell

import "sync"

// Cell is a latest-value holder with replay-then-live subscriptions.
type Cell[T any] struct {
	dispatchMu sync.Mutex // serialises Emit and Subscribe replay

	mu    sync.Mutex // protects the fields below
	value T
	set   bool
	subs  []*subscriber[T]
}

type subscriber[T any] struct {
	fn     func(T)
	active bool // guarded by Cell.mu
}

// New returns an empty cell.
func New[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Subscribe registers fn for every future emission. If the cell already holds
// a value, fn is called with it before Subscribe returns.
//
// The returned function removes the subscription. It is safe to call more
// than once and from inside fn itself.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	sub := &subscriber[T]{fn: fn, active: true}

	c.mu.Lock()
	value, set := c.value, c.set
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	if set {
		fn(value)
	}

	return func() { c.remove(sub) }
}

// Emit stores v and synchronously invokes all subscribers in subscription order.
func (c *Cell[T]) Emit(v T) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	c.value = v
	c.set = true
	subs := make([]*subscriber[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		if c.isActive(s) {
			s.fn(v)
		}
	}
}

// Current returns the last emitted value and whether one exists.
func (c *Cell[T]) Current() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Subscribers returns the number of live subscriptions.
func (c *Cell[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Clear drops every subscription. The stored value is kept.
func (c *Cell[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		s.active = false
	}
	c.subs = nil
}

func (c *Cell[T]) isActive(s *subscriber[T]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.active
}

func (c *Cell[T]) remove(sub *subscriber[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !sub.active {
		return
	}
	sub.active = false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}
