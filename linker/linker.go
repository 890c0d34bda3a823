package linker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
)

// FuncDef is a host function waiting to be exported to guests.
type FuncDef struct {
	Handler     api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// Linker collects host function definitions per import module and
// instantiates them into a wazero runtime. Thread-safe.
type Linker struct {
	runtime      wazero.Runtime
	modules      map[string]map[string]*FuncDef
	history      []funcKey
	instantiated bool
	mu           sync.RWMutex
}

type funcKey struct {
	module string
	name   string
}

// New creates a new Linker for the given wazero runtime.
func New(rt wazero.Runtime) *Linker {
	return &Linker{
		runtime: rt,
		modules: make(map[string]map[string]*FuncDef),
	}
}

// Runtime returns the wazero runtime.
func (l *Linker) Runtime() wazero.Runtime {
	return l.runtime
}

// Define adds a host function to the named import module. Defining the same
// module#name twice, or defining anything after Instantiate, fails.
func (l *Linker) Define(module, name string, fn api.GoModuleFunc, params, results []api.ValueType) error {
	if module == "" {
		return errors.InvalidInput(errors.PhaseLinking, "module name cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseLinking, "function name cannot be empty")
	}
	if fn == nil {
		return errors.New(errors.PhaseLinking, errors.KindInvalidInput).
			Path(module, name).
			Detail("nil handler").
			Build()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instantiated {
		return errors.Registration(errors.PhaseLinking, module, name, errors.Consumed(errors.PhaseLinking, "linker"))
	}

	funcs := l.modules[module]
	if funcs == nil {
		funcs = make(map[string]*FuncDef)
		l.modules[module] = funcs
	}
	if _, exists := funcs[name]; exists {
		return errors.New(errors.PhaseLinking, errors.KindDuplicate).
			Path(module, name).
			Detail("host function already defined").
			Build()
	}

	funcs[name] = &FuncDef{
		Handler:     fn,
		Name:        name,
		ParamTypes:  params,
		ResultTypes: results,
	}
	l.history = append(l.history, funcKey{module: module, name: name})
	Logger().Debug("host function defined", zap.String("module", module), zap.String("name", name))
	return nil
}

// Mark returns the current position in the definition history.
func (l *Linker) Mark() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}

// Rollback removes every function defined since mark. It fails once the
// linker has been instantiated.
func (l *Linker) Rollback(mark int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instantiated {
		return errors.Consumed(errors.PhaseLinking, "linker")
	}
	if mark < 0 || mark > len(l.history) {
		return errors.OutOfBounds(errors.PhaseLinking, []string{"history"}, mark, len(l.history))
	}
	for _, k := range l.history[mark:] {
		funcs := l.modules[k.module]
		delete(funcs, k.name)
		if len(funcs) == 0 {
			delete(l.modules, k.module)
		}
		Logger().Debug("host function removed", zap.String("module", k.module), zap.String("name", k.name))
	}
	l.history = l.history[:mark]
	return nil
}

// DefineFunc is a convenience method to define a function at a full path.
// DefineFunc uses path format: "wasi:logging/logging#log"
func (l *Linker) DefineFunc(path string, fn api.GoModuleFunc, params, results []api.ValueType) error {
	module, name, err := splitFuncPath(path)
	if err != nil {
		return err
	}
	return l.Define(module, name, fn, params, results)
}

// Resolve looks up a function by full path, or returns nil.
func (l *Linker) Resolve(path string) *FuncDef {
	module, name, err := splitFuncPath(path)
	if err != nil {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modules[module][name]
}

// Modules returns the sorted names of all import modules with definitions.
func (l *Linker) Modules() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.modules))
	for name := range l.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns the sorted function names defined in module.
func (l *Linker) Functions(module string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	funcs := l.modules[module]
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate builds one wazero host module per import module. It may be
// called once; guests instantiated afterwards resolve their imports against
// these modules.
func (l *Linker) Instantiate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instantiated {
		return errors.Consumed(errors.PhaseLinking, "linker")
	}
	l.instantiated = true

	modules := make([]string, 0, len(l.modules))
	for name := range l.modules {
		modules = append(modules, name)
	}
	sort.Strings(modules)

	for _, module := range modules {
		builder := l.runtime.NewHostModuleBuilder(module)
		for _, f := range l.modules[module] {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(f.Handler, f.ParamTypes, f.ResultTypes).
				Export(f.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.New(errors.PhaseLinking, errors.KindInstantiation).
				Path(module).
				Detail("instantiate host module").
				Cause(err).
				Build()
		}
		Logger().Debug("host module instantiated",
			zap.String("module", module),
			zap.Int("functions", len(l.modules[module])))
	}
	return nil
}

// splitFuncPath splits "module#funcname" into module and function parts
func splitFuncPath(path string) (module, funcName string, err error) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '#' {
			return path[:i], path[i+1:], nil
		}
	}
	return "", "", errors.InvalidInput(errors.PhaseLinking,
		fmt.Sprintf("invalid function path %q: missing '#' separator", path))
}

// ReadString copies a UTF-8 string out of guest memory.
func ReadString(m api.Module, ptr, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	mem := m.Memory()
	if mem == nil {
		return "", errors.New(errors.PhaseRuntime, errors.KindNotFound).
			Detail("guest module %q exports no memory", m.Name()).
			Build()
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return "", errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
			Value(ptr).
			Detail("read %d bytes at %d exceeds memory size %d", length, ptr, mem.Size()).
			Build()
	}
	if !utf8.Valid(data) {
		return "", errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Detail("invalid UTF-8 string at %d", ptr).
			Build()
	}
	return string(data), nil
}
