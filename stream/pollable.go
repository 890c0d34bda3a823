package stream

import (
	"context"
	"sync"
)

// Pollable is a readiness signal a writer can wait on.
type Pollable interface {
	// Ready returns true if the resource is ready for I/O.
	Ready() bool
	// Block waits until the resource becomes ready or ctx is canceled.
	Block(ctx context.Context)
}

// ReadyPollable is always ready. Streams that never apply back-pressure
// return it from Subscribe.
type ReadyPollable struct{}

// NewReadyPollable returns a pollable that is already ready.
func NewReadyPollable() *ReadyPollable {
	return &ReadyPollable{}
}

func (*ReadyPollable) Ready() bool           { return true }
func (*ReadyPollable) Block(context.Context) {}

// SignalPollable becomes ready once Signal is called. It is safe for
// concurrent use, so another goroutine can wake a blocked writer.
type SignalPollable struct {
	ch   chan struct{}
	once sync.Once
}

// NewSignalPollable creates a pollable that is not ready yet.
func NewSignalPollable() *SignalPollable {
	return &SignalPollable{ch: make(chan struct{})}
}

// Signal marks the pollable ready and wakes all waiters.
func (p *SignalPollable) Signal() {
	p.once.Do(func() { close(p.ch) })
}

func (p *SignalPollable) Ready() bool {
	select {
	case <-p.ch:
		return true
	default:
		return false
	}
}

func (p *SignalPollable) Block(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-p.ch:
	}
}
