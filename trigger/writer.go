package trigger

import (
	"context"
	"sync"

	"github.com/wippyai/wasm-host/stream"
	"go.uber.org/multierr"
)

type writeState uint8

const (
	stateIdle writeState = iota
	stateWriting
	stateMirroring
)

func (s writeState) String() string {
	switch s {
	case stateWriting:
		return "writing"
	case stateMirroring:
		return "mirroring"
	default:
		return "idle"
	}
}

// ComponentStdioWriter multiplexes one guest output stream. Every write is
// prefixed with "[component] " and stored in sink. When follow is set, the
// same bytes are mirrored to it once the sink has accepted all of them.
type ComponentStdioWriter struct {
	sink    stream.OutputStream
	follow  stream.OutputStream
	label   []byte
	payload []byte
	written int
	start   int
	end     int
	state   writeState
	mu      sync.Mutex
}

// NewComponentStdioWriter creates a writer for componentID. follow may be nil.
func NewComponentStdioWriter(componentID string, sink, follow stream.OutputStream) *ComponentStdioWriter {
	return &ComponentStdioWriter{
		sink:   sink,
		follow: follow,
		label:  []byte("[" + componentID + "] "),
	}
}

// Following reports whether output is mirrored.
func (w *ComponentStdioWriter) Following() bool {
	return w.follow != nil
}

// Write implements io.Writer. It blocks until p is stored and, if followed,
// mirrored.
func (w *ComponentStdioWriter) Write(p []byte) (int, error) {
	return w.WriteContext(context.Background(), p)
}

// WriteContext writes p, waiting on stream readiness until done or ctx ends.
// On success it returns len(p); the label is not counted.
func (w *ComponentStdioWriter) WriteContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.payload = append(append(w.payload[:0], w.label...), p...)
	w.written = 0
	w.state = stateWriting

	for w.state != stateIdle {
		var (
			active stream.OutputStream
			n      int
			err    error
		)
		switch w.state {
		case stateWriting:
			active = w.sink
			n, err = stream.WriteSome(w.sink, w.payload[w.written:])
			w.written += n
			if err == nil && w.written == len(w.payload) {
				w.finishWriting()
			}
		case stateMirroring:
			active = w.follow
			n, err = stream.WriteSome(w.follow, w.payload[w.start:w.end])
			w.start += n
			if err == nil && w.start == w.end {
				w.state = stateIdle
			}
		}
		if err != nil {
			w.reset()
			return 0, err
		}
		if n == 0 && w.state != stateIdle {
			if err := stream.Wait(ctx, active); err != nil {
				w.reset()
				return 0, err
			}
		}
	}

	w.reset()
	return len(p), nil
}

func (w *ComponentStdioWriter) finishWriting() {
	if w.follow == nil {
		w.state = stateIdle
		return
	}
	w.start, w.end = 0, w.written
	w.state = stateMirroring
}

func (w *ComponentStdioWriter) reset() {
	w.state = stateIdle
	w.written, w.start, w.end = 0, 0, 0
}

// Flush flushes the sink and, if followed, the mirror.
func (w *ComponentStdioWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.sink.Flush()
	if w.follow != nil {
		err = multierr.Append(err, w.follow.Flush())
	}
	return err
}

// Close flushes both streams and closes the sink. The mirror is shared and
// stays open.
func (w *ComponentStdioWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := multierr.Combine(w.sink.Flush(), w.sink.Close())
	if w.follow != nil {
		err = multierr.Append(err, w.follow.Flush())
	}
	return err
}
