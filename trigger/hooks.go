package trigger

import (
	"io"
	"os"
	"slices"

	"github.com/tetratelabs/wazero"
	"go.uber.org/multierr"
)

// Hooks observe application loading and configure component stores.
type Hooks interface {
	// AppLoaded is called once, before any component runs.
	AppLoaded(app *App) error
	// ComponentStore is called before each component instantiation.
	ComponentStore(c *Component, b *StoreBuilder) error
}

// StoreBuilder collects the module configuration for one guest instance and
// owns the pipes attached to it.
type StoreBuilder struct {
	config  wazero.ModuleConfig
	stdout  io.Writer
	stderr  io.Writer
	closers []io.Closer
}

// NewStoreBuilder starts from cfg.
func NewStoreBuilder(cfg wazero.ModuleConfig) *StoreBuilder {
	return &StoreBuilder{config: cfg}
}

// StdoutPipe sends guest stdout to w. The builder closes w in Close.
func (b *StoreBuilder) StdoutPipe(w io.WriteCloser) {
	b.stdout = w
	b.config = b.config.WithStdout(w)
	b.closers = append(b.closers, w)
}

// StderrPipe sends guest stderr to w. The builder closes w in Close.
func (b *StoreBuilder) StderrPipe(w io.WriteCloser) {
	b.stderr = w
	b.config = b.config.WithStderr(w)
	b.closers = append(b.closers, w)
}

// InheritStdout connects guest stdout to the host's stdout.
func (b *StoreBuilder) InheritStdout() {
	b.stdout = os.Stdout
	b.config = b.config.WithStdout(os.Stdout)
}

// InheritStderr connects guest stderr to the host's stderr.
func (b *StoreBuilder) InheritStderr() {
	b.stderr = os.Stderr
	b.config = b.config.WithStderr(os.Stderr)
}

// Stdout returns the writer attached to guest stdout, or nil.
func (b *StoreBuilder) Stdout() io.Writer { return b.stdout }

// Stderr returns the writer attached to guest stderr, or nil.
func (b *StoreBuilder) Stderr() io.Writer { return b.stderr }

// Config returns the module configuration built so far.
func (b *StoreBuilder) Config() wazero.ModuleConfig {
	return b.config
}

// Close closes every attached pipe, most recent first.
func (b *StoreBuilder) Close() error {
	var err error
	for _, c := range slices.Backward(b.closers) {
		err = multierr.Append(err, c.Close())
	}
	b.closers = nil
	return err
}
