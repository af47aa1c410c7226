package xcomfort

import (
	"context"
	"fmt"
)

// loopQueueSize bounds work waiting for the event loop.
const loopQueueSize = 256

// run executes posted work until done is closed. It is the only goroutine
// that mutates the registry.
func (b *Bridge) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case fn := <-b.queue:
			b.safely(fn)
		}
	}
}

func (b *Bridge) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in bridge event loop", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// post queues fn for the event loop. It reports false once the bridge
// has stopped.
func (b *Bridge) post(fn func()) bool {
	if b.stopped() {
		return false
	}
	select {
	case <-b.done:
		return false
	case b.queue <- fn:
		return true
	}
}

// call runs fn on the event loop and waits for its result.
func (b *Bridge) call(ctx context.Context, fn func() error) error {
	if b.stopped() {
		return ErrStopped
	}
	result := make(chan error, 1)
	queued := func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("panic in bridge call", "panic", fmt.Sprint(r))
				result <- fmt.Errorf("bridge call panicked: %v", r)
			}
		}()
		result <- fn()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrStopped
	case b.queue <- queued:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrStopped
	case err := <-result:
		return err
	}
}

func (b *Bridge) stopped() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
