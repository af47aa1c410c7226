package device

import (
	"context"
	"errors"
	"sync"
)

// recordingSender captures requests instead of sending them.
type recordingSender struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (s *recordingSender) Send(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.requests = append(s.requests, req)
	return nil
}

func (s *recordingSender) sent() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

var errTransport = errors.New("transport down")

// info builds an info array entry list from code/value pairs.
func info(pairs ...any) []any {
	out := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, map[string]any{"text": pairs[i], "value": pairs[i+1]})
	}
	return out
}

func newTestDevice(reg *Registry, rec DeviceRecord, sender Sender) Device {
	if rec.Payload == nil {
		rec.Payload = Payload{}
	}
	d := New(rec, Options{Directory: reg, Sender: sender})
	reg.AddDevice(d)
	return d
}

func ptrValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
