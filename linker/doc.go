// Package linker is the host-call dispatch layer capabilities bind into.
//
// Capabilities define host functions on a Linker, grouped by import module
// ("wasi:logging/logging"). Once every capability is bound, Instantiate
// builds one wazero host module per import module; guest modules instantiated
// later in the same runtime resolve their imports against them.
//
// # Thread Safety
//
// Linker is safe for concurrent use. Host functions receive the context
// passed to the guest call, which is how per-instance state reaches them.
//
// # Example
//
//	l := linker.New(rt)
//	_ = l.DefineFunc("wasi:logging/logging#log", handler, params, nil)
//	if err := l.Instantiate(ctx); err != nil {
//	    return err
//	}
package linker
