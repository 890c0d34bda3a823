package trigger

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wippyai/wasm-host/stream"
)

// eventLog records which stream received which bytes, in order.
type eventLog struct {
	events []string
	mu     sync.Mutex
}

func (l *eventLog) add(name string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, name+":"+string(data))
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// testStream grants at most budget bytes per CheckWrite and is not ready
// until gate is signalled.
type testStream struct {
	*stream.MemoryOutputStream
	gate     *stream.SignalPollable
	log      *eventLog
	checkErr error
	name     string
	budget   uint64
	closed   bool
}

func newTestStream(name string, budget uint64, log *eventLog) *testStream {
	gate := stream.NewSignalPollable()
	gate.Signal()
	return &testStream{
		MemoryOutputStream: stream.NewMemoryStream(),
		gate:               gate,
		log:                log,
		name:               name,
		budget:             budget,
	}
}

func (s *testStream) CheckWrite() (uint64, error) {
	if s.checkErr != nil {
		return 0, s.checkErr
	}
	if !s.gate.Ready() {
		return 0, nil
	}
	return s.budget, nil
}

func (s *testStream) Write(data []byte) error {
	if s.log != nil {
		s.log.add(s.name, data)
	}
	return s.MemoryOutputStream.Write(data)
}

func (s *testStream) Subscribe() stream.Pollable { return s.gate }

func (s *testStream) Close() error {
	s.closed = true
	return s.MemoryOutputStream.Close()
}

func TestComponentStdioWriter_LabelsAndStores(t *testing.T) {
	sink := newTestStream("sink", stream.DefaultBufferSize, nil)
	w := NewComponentStdioWriter("web", sink, nil)

	n, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = w.Write([]byte("again\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Equal(t, "[web] hello\n[web] again\n", string(sink.Bytes()))
	assert.False(t, w.Following())
}

func TestComponentStdioWriter_EmptyWrite(t *testing.T) {
	sink := newTestStream("sink", stream.DefaultBufferSize, nil)
	w := NewComponentStdioWriter("web", sink, nil)

	n, err := w.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sink.Bytes())
}

func TestComponentStdioWriter_PartialWritesMirrorAfterSink(t *testing.T) {
	log := &eventLog{}
	sink := newTestStream("sink", 3, log)
	follow := newTestStream("follow", 4, log)
	w := NewComponentStdioWriter("a", sink, follow)

	n, err := w.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	assert.Equal(t, "[a] hello world", string(sink.Bytes()))
	assert.Equal(t, "[a] hello world", string(follow.Bytes()))

	events := log.snapshot()
	require.NotEmpty(t, events)
	seenFollow := false
	for _, ev := range events {
		if strings.HasPrefix(ev, "follow:") {
			seenFollow = true
			continue
		}
		assert.False(t, seenFollow, "sink write %q after mirroring started", ev)
	}
	// 15 bytes in chunks of 3, then chunks of 4.
	assert.Len(t, events, 5+4)
}

func TestComponentStdioWriter_WaitsForReadiness(t *testing.T) {
	sink := newTestStream("sink", 2, nil)
	follow := newTestStream("follow", stream.DefaultBufferSize, nil)
	follow.gate = stream.NewSignalPollable()
	w := NewComponentStdioWriter("a", sink, follow)

	done := make(chan struct{})
	var (
		n   int
		err error
	)
	go func() {
		defer close(done)
		n, err = w.Write([]byte("xyz"))
	}()

	require.Eventually(t, func() bool {
		return string(sink.Bytes()) == "[a] xyz"
	}, time.Second, time.Millisecond)

	select {
	case <-done:
		t.Fatal("write returned before the mirror was ready")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Empty(t, follow.Bytes())

	follow.gate.Signal()
	<-done
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "[a] xyz", string(follow.Bytes()))
}

func TestComponentStdioWriter_ContextCanceled(t *testing.T) {
	sink := newTestStream("sink", stream.DefaultBufferSize, nil)
	sink.gate = stream.NewSignalPollable()
	w := NewComponentStdioWriter("a", sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := w.WriteContext(ctx, []byte("lost"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)

	sink.gate.Signal()
	n, err = w.Write([]byte("kept"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "[a] kept", string(sink.Bytes()))
}

func TestComponentStdioWriter_SinkError(t *testing.T) {
	boom := stderrors.New("disk full")

	t.Run("sink", func(t *testing.T) {
		sink := newTestStream("sink", stream.DefaultBufferSize, nil)
		sink.checkErr = boom
		follow := newTestStream("follow", stream.DefaultBufferSize, nil)
		w := NewComponentStdioWriter("a", sink, follow)

		n, err := w.Write([]byte("data"))
		require.ErrorIs(t, err, boom)
		assert.Zero(t, n)
		assert.Empty(t, follow.Bytes())
	})

	t.Run("follow", func(t *testing.T) {
		sink := newTestStream("sink", stream.DefaultBufferSize, nil)
		follow := newTestStream("follow", stream.DefaultBufferSize, nil)
		follow.checkErr = boom
		w := NewComponentStdioWriter("a", sink, follow)

		n, err := w.Write([]byte("data"))
		require.ErrorIs(t, err, boom)
		assert.Zero(t, n)
		assert.Equal(t, "[a] data", string(sink.Bytes()))
	})
}

func TestComponentStdioWriter_ConcurrentWritesStayWhole(t *testing.T) {
	sink := newTestStream("sink", 5, nil)
	w := NewComponentStdioWriter("a", sink, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			_, err := w.Write([]byte("line\n"))
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Equal(t, strings.Repeat("[a] line\n", 10), string(sink.Bytes()))
}

func TestComponentStdioWriter_CloseLeavesMirrorOpen(t *testing.T) {
	sink := newTestStream("sink", stream.DefaultBufferSize, nil)
	follow := newTestStream("follow", stream.DefaultBufferSize, nil)
	w := NewComponentStdioWriter("a", sink, follow)

	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())
	assert.True(t, sink.closed)
	assert.False(t, follow.closed)

	_, err := w.Write([]byte("late"))
	var se *stream.StreamError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Closed)
}
