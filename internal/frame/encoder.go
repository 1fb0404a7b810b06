package frame

import "encoding/binary"

// Builder assembles one outbound frame to a single destination, packing as
// many commands as fit under FrameLenMax (spec.md §4.1 encoding contract).
type Builder struct {
	dst      uint16
	src      uint16
	payload  []byte
	overflow bool
}

// NewBuilder starts a frame addressed from src to dst.
func NewBuilder(dst, src uint16) *Builder {
	return &Builder{dst: dst, src: src}
}

// Add appends one command's wire bytes to the frame if it fits under
// FrameLenMax, reporting whether it was added. Once a command does not
// fit, the builder refuses all further Adds (the caller leaves the
// remainder queued for the next tick, per spec.md §4.2 step 3).
func (b *Builder) Add(kind Kind, ack bool, port uint8, args []byte) bool {
	if b.overflow {
		return false
	}

	halfLen, padded := packArgs(args)
	bodyLen := 2 + len(padded)
	if FrameHeaderLen+len(b.payload)+bodyLen+1 > FrameLenMax {
		b.overflow = true
		return false
	}

	b.payload = append(b.payload, cmdByte(kind, ack, halfLen), port)
	b.payload = append(b.payload, padded...)
	return true
}

// AddBulk appends a bulk CONFIG command whose args are not sized by halfLen
// and run to the end of the frame, the layout of a module's
// port-enumeration ACK. The TX queue does not call it: its CONFIG/0xFF
// requests go through Add like every other queued command.
func (b *Builder) AddBulk(kind Kind, ack bool, port uint8, args []byte) bool {
	if b.overflow {
		return false
	}
	bodyLen := 2 + len(args)
	if FrameHeaderLen+len(b.payload)+bodyLen+1 > FrameLenMax {
		b.overflow = true
		return false
	}
	// halfLen is meaningless for a bulk command; encode 0.
	b.payload = append(b.payload, cmdByte(kind, ack, 0), port)
	b.payload = append(b.payload, args...)
	return true
}

// Len reports the bytes committed to the payload so far.
func (b *Builder) Len() int {
	return len(b.payload)
}

// Overflowed reports whether the last Add/AddBulk call was refused.
func (b *Builder) Overflowed() bool {
	return b.overflow
}

// Bytes finalises the frame: header, payload, and checksum.
func (b *Builder) Bytes() []byte {
	out := make([]byte, FrameHeaderLen+len(b.payload)+1)
	out[0] = Preamble
	binary.BigEndian.PutUint16(out[1:3], b.dst)
	binary.BigEndian.PutUint16(out[3:5], b.src)
	out[5] = byte(len(b.payload))
	copy(out[6:], b.payload)
	out[len(out)-1] = checksum(out[:len(out)-1])
	return out
}

// HalfLen reports the payloadLenCode a command with these args would
// encode to, without building a frame. Used by the TX queue to compute
// coalescing keys (spec.md §4.2, §8 property 4) ahead of transmission.
func HalfLen(args []byte) int {
	halfLen, _ := packArgs(args)
	return halfLen
}

// packArgs pads args to an even length with a trailing zero byte when
// needed and returns the matching halfLen (spec.md §4.1).
func packArgs(args []byte) (halfLen int, padded []byte) {
	if len(args)%2 != 0 {
		padded = append(append([]byte(nil), args...), 0)
	} else {
		padded = append([]byte(nil), args...)
	}
	return len(padded) / 2, padded
}
