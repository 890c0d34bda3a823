package trigger

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"github.com/wippyai/wasm-host/capability"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/linker"
	"github.com/wippyai/wasm-host/wasi/logging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CapabilityFunc registers additional capabilities before the registry is
// built.
type CapabilityFunc func(b *capability.Builder, l *linker.Linker) error

// Option configures an Executor.
type Option func(*Executor)

// WithHooks appends hooks. They run in the order given.
func WithHooks(hooks ...Hooks) Option {
	return func(e *Executor) {
		e.hooks = append(e.hooks, hooks...)
	}
}

// WithCapability registers extra capabilities.
func WithCapability(fn CapabilityFunc) Option {
	return func(e *Executor) {
		e.capabilities = append(e.capabilities, fn)
	}
}

// WithLogger sets the host logger. Guest log records go to a child logger
// named after the component.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithRuntimeConfig overrides the wazero runtime configuration. The default
// closes running guests when their context is done; a custom configuration
// needs WithCloseOnContextDone for the same behavior.
func WithRuntimeConfig(cfg wazero.RuntimeConfig) Option {
	return func(e *Executor) {
		e.runtimeConfig = cfg
	}
}

// Executor runs the components of one application in a shared wazero
// runtime. Each run gets a fresh capability Store.
type Executor struct {
	app           *App
	runtime       wazero.Runtime
	runtimeConfig wazero.RuntimeConfig
	linker        *linker.Linker
	registry      *capability.Registry
	logger        *zap.Logger
	hooks         []Hooks
	capabilities  []CapabilityFunc
	logging       capability.Handle[logging.State]
	hasLogging    bool
}

// NewExecutor prepares app: it builds the capability registry, runs the
// AppLoaded hooks and instantiates host modules.
func NewExecutor(ctx context.Context, app *App, opts ...Option) (*Executor, error) {
	e := &Executor{app: app}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = Logger()
	}
	if e.runtimeConfig == nil {
		e.runtimeConfig = wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	}
	if err := validateApp(app); err != nil {
		return nil, err
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, e.runtimeConfig)
	if err := e.init(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, err
	}
	return e, nil
}

func (e *Executor) init(ctx context.Context) error {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		return errors.Instantiation(wasi_snapshot_preview1.ModuleName, err)
	}

	e.linker = linker.New(e.runtime)
	b := capability.NewBuilder()
	if _, err := capability.Add[logging.State](b, e.linker, logging.New(e.logger)); err != nil {
		return err
	}
	for _, fn := range e.capabilities {
		if err := fn(b, e.linker); err != nil {
			return err
		}
	}
	e.registry = b.Build()
	e.logging, e.hasLogging = capability.FindHandle[*logging.Capability, logging.State](e.registry)

	for _, h := range e.hooks {
		if err := h.AppLoaded(e.app); err != nil {
			return err
		}
	}

	if err := e.linker.Instantiate(ctx); err != nil {
		return err
	}

	e.logger.Debug("application loaded",
		zap.String("app", e.app.Name),
		zap.Strings("components", e.app.ComponentIDs()),
		zap.Strings("capabilities", e.registry.Names()))
	return nil
}

func validateApp(app *App) error {
	if app == nil {
		return errors.InvalidInput(errors.PhaseLoad, "nil application")
	}
	seen := make(map[string]struct{}, len(app.Components))
	for i, c := range app.Components {
		if c.ID == "" {
			return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Path("components", fmt.Sprint(i)).
				Detail("component has no id").
				Build()
		}
		if _, dup := seen[c.ID]; dup {
			return errors.New(errors.PhaseLoad, errors.KindDuplicate).
				Path("components", c.ID).
				Detail("component declared twice").
				Build()
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// App returns the application being run.
func (e *Executor) App() *App { return e.app }

// Registry returns the capability registry shared by every run.
func (e *Executor) Registry() *capability.Registry { return e.registry }

// Linker returns the host-call linker.
func (e *Executor) Linker() *linker.Linker { return e.linker }

// Run instantiates componentID and runs it to completion. A WASI exit with
// status 0 counts as success.
func (e *Executor) Run(ctx context.Context, componentID string) (err error) {
	c, ok := e.app.Component(componentID)
	if !ok {
		return errors.NotFound(errors.PhaseRuntime, "component", componentID)
	}

	bin, err := os.ReadFile(c.Source)
	if err != nil {
		return errors.IO(errors.PhaseLoad, "read component", c.Source, err)
	}
	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err,
			fmt.Sprintf("compile component %q", c.ID))
	}
	defer compiled.Close(ctx)

	sb := NewStoreBuilder(moduleConfig(c))
	defer func() {
		err = multierr.Append(err, sb.Close())
	}()
	for _, h := range e.hooks {
		if err := h.ComponentStore(c, sb); err != nil {
			return err
		}
	}

	store := e.registry.NewStore()
	log := e.logger.With(zap.String("component", c.ID))
	if e.hasLogging {
		capability.Set(store, e.logging, logging.State{Logger: log})
	}

	log.Debug("starting component", zap.String("source", c.Source))
	mod, runErr := e.runtime.InstantiateModule(capability.WithStore(ctx, store), compiled, sb.Config())
	if mod != nil {
		defer mod.Close(ctx)
	}
	if runErr != nil {
		var exitErr *sys.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 0 {
			runErr = nil
		}
	}
	if runErr != nil {
		return errors.Instantiation(fmt.Sprintf("component %q", c.ID), runErr)
	}
	log.Debug("component finished")
	return nil
}

func moduleConfig(c *Component) wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().
		WithName(c.ID).
		WithArgs(append([]string{c.ID}, c.Args...)...)

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cfg = cfg.WithEnv(k, c.Env[k])
	}
	return cfg
}

// RunAll runs every component concurrently and returns their combined
// errors in declaration order.
func (e *Executor) RunAll(ctx context.Context) error {
	errs := make([]error, len(e.app.Components))
	var wg sync.WaitGroup
	for i := range e.app.Components {
		id := e.app.Components[i].ID
		wg.Go(func() {
			errs[i] = e.Run(ctx, id)
		})
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// Close releases the runtime and everything instantiated in it.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
