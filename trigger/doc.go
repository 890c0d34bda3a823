// Package trigger runs an application's guest components and decides where
// their standard streams go.
//
// An Executor owns the wazero runtime, the capability registry and the
// linker. Hooks observe the application once when it is loaded and then
// configure each component's store before it is instantiated.
//
// StdioHooks is the standard hook set: with a log directory configured, every
// component's stdout and stderr go through a ComponentStdioWriter that appends
// to "<dir>/<component>_<stream>.txt" and, for followed components, mirrors
// the same bytes to the host's stderr. Without a log directory the guest
// inherits the host's streams directly.
package trigger
