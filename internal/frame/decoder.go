package frame

import "encoding/binary"

// Decoder turns a byte stream from one serial bus into a sequence of
// Frames. It owns an internal buffer so callers can Feed arbitrary read
// chunks and call Next repeatedly to drain whatever complete frames are
// available.
//
// Decoding contract (spec.md §4.1): the oldest complete frame is consumed
// only when its checksum matches; any mismatch advances the buffer by one
// byte and resyncs on the next preamble. Partial frames are never emitted.
type Decoder struct {
	buf []byte

	// OnResync, if set, is called once for every byte dropped while
	// hunting for a valid frame (bad preamble lead-in or checksum
	// mismatch). Callers use this to log at debug level (spec.md §7).
	OnResync func(reason string, dropped byte)
}

// NewDecoder returns a Decoder ready to receive bytes.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends newly read bytes to the decode buffer.
func (d *Decoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Next returns the oldest complete, checksum-valid frame in the buffer, or
// ok=false if no complete frame is currently available (more bytes must be
// fed first). It resyncs past any invalid lead-in bytes internally, so a
// single call may discard several bytes before succeeding or giving up.
func (d *Decoder) Next() (fr Frame, ok bool) {
	for {
		idx := d.seekPreamble()
		if idx < 0 {
			return Frame{}, false
		}
		if idx > 0 {
			d.buf = d.buf[idx:]
		}

		if len(d.buf) < FrameHeaderLen {
			return Frame{}, false
		}

		payloadLen := int(d.buf[5])
		total := FrameHeaderLen + payloadLen + 1
		if len(d.buf) < total {
			return Frame{}, false
		}

		candidate := d.buf[:total]
		if checksum(candidate[:total-1]) != candidate[total-1] {
			d.drop(1, "checksum mismatch")
			continue
		}

		fr, err := decodeFrame(candidate)
		if err != nil {
			d.drop(1, "malformed command")
			continue
		}

		d.buf = d.buf[total:]
		return fr, true
	}
}

// seekPreamble returns the index of the next Preamble byte in the buffer,
// or -1 if none is present yet.
func (d *Decoder) seekPreamble() int {
	for i, b := range d.buf {
		if b == Preamble {
			return i
		}
	}
	// No preamble anywhere in the buffer: nothing usable remains.
	if len(d.buf) > 0 {
		d.buf = nil
	}
	return -1
}

func (d *Decoder) drop(n int, reason string) {
	for i := 0; i < n && i < len(d.buf); i++ {
		if d.OnResync != nil {
			d.OnResync(reason, d.buf[i])
		}
	}
	if n > len(d.buf) {
		n = len(d.buf)
	}
	d.buf = d.buf[n:]
}

// checksum is the additive 8-bit checksum over the given bytes (spec.md §8
// property 2).
func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// decodeFrame parses a complete, checksum-validated frame (header through
// payload, excluding the trailing checksum byte already verified by the
// caller) into a Frame with its commands decoded in order.
func decodeFrame(frameBytes []byte) (Frame, error) {
	dst := binary.BigEndian.Uint16(frameBytes[1:3])
	src := binary.BigEndian.Uint16(frameBytes[3:5])
	payloadLen := int(frameBytes[5])
	payload := frameBytes[FrameHeaderLen : FrameHeaderLen+payloadLen]

	var cmds []Command
	i := 0
	for i < len(payload) {
		if i+2 > len(payload) {
			return Frame{}, ErrTruncated
		}
		cb := payload[i]
		port := payload[i+1]
		kind := Kind((cb >> kindShift) & kindFromByte)
		ack := cb&ackBit != 0
		halfLen := int(cb & halfLenMask)

		if isBulkConfig(kind, ack, port) {
			args := append([]byte(nil), payload[i+2:]...)
			cmds = append(cmds, Command{Kind: kind, Ack: ack, Port: port, Args: args, Bulk: true})
			break
		}

		argsLen := 2 * halfLen
		if i+2+argsLen > len(payload) {
			return Frame{}, ErrTruncated
		}
		args := append([]byte(nil), payload[i+2:i+2+argsLen]...)
		cmds = append(cmds, Command{Kind: kind, Ack: ack, Port: port, Args: args})
		i += 2 + argsLen
	}

	return Frame{Dst: dst, Src: src, Commands: cmds}, nil
}
