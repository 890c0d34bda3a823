package stream

import (
	"context"
)

// WriteSome makes one non-blocking write attempt of at most the stream's
// current budget. It returns the number of bytes accepted, which is zero
// when the stream is not ready.
func WriteSome(s OutputStream, data []byte) (int, error) {
	budget, err := s.CheckWrite()
	if err != nil {
		return 0, err
	}
	if budget == 0 || len(data) == 0 {
		return 0, nil
	}
	n := len(data)
	if uint64(n) > budget {
		n = int(budget)
	}
	if err := s.Write(data[:n]); err != nil {
		return 0, err
	}
	return n, nil
}

// Wait suspends until s signals readiness or ctx is done.
func Wait(ctx context.Context, s OutputStream) error {
	p := s.Subscribe()
	if !p.Ready() {
		p.Block(ctx)
	}
	return ctx.Err()
}
