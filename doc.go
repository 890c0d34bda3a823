// Package wasmhost runs WebAssembly guest modules under wazero with a typed
// capability layer and per-component output logging.
//
// # Architecture Overview
//
//	wasmhost/
//	├── capability/      Handle-indexed capability registry and per-instance stores
//	├── linker/          Host function definitions grouped into wazero host modules
//	├── stream/          Non-blocking output streams and pollables
//	├── trigger/         Application model, hooks, stdio multiplexing and executor
//	├── wasi/logging/    wasi:logging/logging capability
//	├── config/          TOML application files
//	├── errors/          Structured error types
//	└── cmd/wasm-host/   Command line entrypoint
//
// # Quick Start
//
//	hooks := trigger.NewStdioHooks(trigger.FollowNamed("web"), trigger.DefaultLogDir(),
//	    trigger.WithLogRoot(trigger.DefaultLogRoot()))
//
//	exec, err := trigger.NewExecutor(ctx, app, trigger.WithHooks(hooks))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close(ctx)
//
//	if err := exec.RunAll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Each component's stdout and stderr land in "<dir>/<id>_stdout.txt" and
// "<dir>/<id>_stderr.txt" with every write prefixed by "[id] ". Followed
// components are mirrored to the host's stderr as well.
//
// # Capabilities
//
// A capability binds host functions into the linker and owns one slot of
// per-instance state:
//
//	b := capability.NewBuilder()
//	h, err := capability.Add[logging.State](b, l, logging.New(logger))
//	reg := b.Build()
//
//	store := reg.NewStore()
//	ctx = capability.WithStore(ctx, store)
//
// Host functions reach their slot through the accessor passed to Bind; the
// state is built on first use.
package wasmhost
