// Package logging implements the wasi:logging/logging interface as a host
// capability.
//
// Guests call log(level, context, message) with both strings passed as
// pointer/length pairs into their exported memory. Each record goes to the
// zap logger held in the calling instance's State, which the executor seeds
// with a logger named after the component.
package logging
