// Package serialbus opens one RS485 serial port per configured DomBus bus
// (spec.md §4.2, §6) using go.bug.st/serial and feeds the raw byte stream
// to a frame.Decoder. It is the lowest layer of the per-bus pipeline
// assembled by internal/gateway: serialbus -> frame -> protocol -> catalog
// -> publisher, with the txqueue scheduler driving writes back out.
//
// A bus that fails to open, or whose read/write hits a transport error,
// logs and goes quiescent: spec.md §5 requires no automatic reconnect from
// the core, and §7 treats serial I/O failures as log-and-continue rather
// than process-fatal.
package serialbus
