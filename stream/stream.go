package stream

import (
	"bytes"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the write budget streams grant per CheckWrite (64 KB)
const DefaultBufferSize = 65536

// OutputStream is a non-blocking byte sink.
type OutputStream interface {
	// CheckWrite returns how many bytes Write accepts now. Zero means not
	// ready: Subscribe and Block before asking again.
	CheckWrite() (uint64, error)
	// Write sends contents, which must not exceed the last CheckWrite budget.
	Write(contents []byte) error
	// Flush pushes buffered bytes to the underlying resource.
	Flush() error
	// Subscribe returns a pollable that is ready when CheckWrite may grant
	// a non-zero budget.
	Subscribe() Pollable
	// Close releases the underlying resource.
	Close() error
}

// StreamError reports a closed stream or a failed operation.
type StreamError struct {
	Cause        error
	Closed       bool // Stream is closed
	LastOpFailed bool // Previous operation failed
}

func (e *StreamError) Error() string {
	if e.Closed {
		return "stream closed"
	}
	if e.Cause != nil {
		return "stream error: " + e.Cause.Error()
	}
	return "stream error"
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

func failed(err error) *StreamError {
	return &StreamError{LastOpFailed: true, Cause: err}
}

// FileOutputStream writes to a file opened for appending.
type FileOutputStream struct {
	file   *os.File
	path   string
	closed bool
}

// OpenFile opens path for appending, creating it if absent.
func OpenFile(path string) (*FileOutputStream, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644) //nolint:gosec // log files are meant to be readable
	if err != nil {
		return nil, err
	}
	return &FileOutputStream{file: f, path: path}, nil
}

// Path returns the file path the stream writes to.
func (s *FileOutputStream) Path() string {
	return s.path
}

func (s *FileOutputStream) CheckWrite() (uint64, error) {
	if s.closed || s.file == nil {
		return 0, &StreamError{Closed: true}
	}
	return DefaultBufferSize, nil
}

func (s *FileOutputStream) Write(data []byte) error {
	if s.closed || s.file == nil {
		return &StreamError{Closed: true}
	}
	if _, err := s.file.Write(data); err != nil {
		return failed(err)
	}
	return nil
}

func (s *FileOutputStream) Flush() error {
	if s.closed || s.file == nil {
		return &StreamError{Closed: true}
	}
	if err := s.file.Sync(); err != nil {
		return failed(err)
	}
	return nil
}

func (s *FileOutputStream) Subscribe() Pollable {
	return NewReadyPollable()
}

func (s *FileOutputStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return failed(err)
	}
	return nil
}

// WriterOutputStream adapts an io.Writer. It is safe for concurrent use to
// the extent the wrapped writer is; writes from different callers are not
// ordered with respect to each other.
type WriterOutputStream struct {
	w      io.Writer
	closed atomic.Bool
}

// NewWriterStream wraps w as an always-ready output stream.
func NewWriterStream(w io.Writer) *WriterOutputStream {
	return &WriterOutputStream{w: w}
}

func (s *WriterOutputStream) CheckWrite() (uint64, error) {
	if s.closed.Load() {
		return 0, &StreamError{Closed: true}
	}
	return DefaultBufferSize, nil
}

func (s *WriterOutputStream) Write(data []byte) error {
	if s.closed.Load() {
		return &StreamError{Closed: true}
	}
	if _, err := s.w.Write(data); err != nil {
		return failed(err)
	}
	return nil
}

// Flush flushes the wrapped writer if it buffers.
func (s *WriterOutputStream) Flush() error {
	if s.closed.Load() {
		return &StreamError{Closed: true}
	}
	if f, ok := s.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return failed(err)
		}
	}
	return nil
}

func (s *WriterOutputStream) Subscribe() Pollable {
	return NewReadyPollable()
}

// Close marks the stream closed without closing the wrapped writer.
func (s *WriterOutputStream) Close() error {
	s.closed.Store(true)
	return nil
}

var stderr = sync.OnceValue(func() *WriterOutputStream {
	return NewWriterStream(os.Stderr)
})

// Stderr returns the process-wide stream over os.Stderr. Every caller gets
// the same instance.
func Stderr() *WriterOutputStream {
	return stderr()
}

// MemoryOutputStream collects writes in memory.
type MemoryOutputStream struct {
	buf    bytes.Buffer
	mu     sync.Mutex
	closed bool
}

// NewMemoryStream creates an empty in-memory stream.
func NewMemoryStream() *MemoryOutputStream {
	return &MemoryOutputStream{}
}

func (s *MemoryOutputStream) CheckWrite() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, &StreamError{Closed: true}
	}
	return DefaultBufferSize, nil
}

func (s *MemoryOutputStream) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &StreamError{Closed: true}
	}
	s.buf.Write(data)
	return nil
}

func (s *MemoryOutputStream) Flush() error { return nil }

func (s *MemoryOutputStream) Subscribe() Pollable {
	return NewReadyPollable()
}

func (s *MemoryOutputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Bytes returns a copy of everything written so far.
func (s *MemoryOutputStream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}
