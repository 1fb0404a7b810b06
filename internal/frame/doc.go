// Package frame implements the DomBus RS485 wire framing layer (spec.md §4.1).
//
// A frame is: preamble (1B) | dst (2B BE) | src (2B BE) | payloadLen (1B) |
// payload[payloadLen] | checksum (1B, additive mod 256). The payload is a
// sequence of commands, each encoded as a command byte (kind, ack flag, and
// half the body length packed together), a port byte, and zero-padded
// argument bytes.
//
// Decoder hunts for the preamble byte, validates the checksum, and resyncs
// by one byte on any mismatch so a corrupted stream never wedges the bus.
// Builder packs as many commands as fit under FrameLenMax and refuses the
// rest, which the caller keeps for the next frame.
package frame
