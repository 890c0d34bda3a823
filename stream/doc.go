// Package stream provides the non-blocking output streams guest output is
// forwarded to.
//
// The contract follows wasi:io/streams output-stream: CheckWrite reports how
// many bytes the stream accepts right now, Write must not exceed that budget,
// and a zero budget means the caller should Subscribe and Block on the
// returned Pollable before trying again. This lets one task drive a guest's
// output without ever blocking inside Write itself.
package stream
