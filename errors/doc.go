// Package errors provides structured error types for the wasm host.
//
// Errors are categorized by Phase (where in the host lifecycle the error
// occurred) and Kind (error category). Configuration errors such as duplicate
// capability registration or unknown follow targets fail host startup;
// I/O errors from guest output sinks are reported by the stream package.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRegister, errors.KindDuplicate).
//		GoType("*logging.Capability").
//		Detail("already registered").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Duplicate(errors.PhaseRegister, "*logging.Capability")
//	err := errors.NotFound(errors.PhaseRuntime, "component", "web")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
