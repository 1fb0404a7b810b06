package frame

import (
	"bytes"
	"testing"
)

// TestScenarioA_Decode reproduces spec.md §8 scenario A: a SET command
// reporting port 1 = 1 from module 0x01FF on bus src=0x01FF, dst=0 (the
// controller).
func TestScenarioA_Decode(t *testing.T) {
	b := NewBuilder(0, 0x01FF)
	if !b.Add(KindSet, false, 1, []byte{1}) {
		t.Fatal("Add() refused to append the command")
	}
	raw := b.Bytes()

	want := []byte{Preamble, 0x00, 0x00, 0x01, 0xFF, 0x04, 0x21, 0x01, 0x01, 0x00}
	if !bytes.Equal(raw[:len(raw)-1], want) {
		t.Fatalf("encoded bytes = % X, want % X (checksum excluded)", raw[:len(raw)-1], want)
	}

	d := NewDecoder()
	d.Feed(raw)
	fr, ok := d.Next()
	if !ok {
		t.Fatal("Next() did not produce a frame")
	}
	if fr.Dst != 0 || fr.Src != 0x01FF {
		t.Errorf("Dst/Src = %04x/%04x, want 0000/01ff", fr.Dst, fr.Src)
	}
	if len(fr.Commands) != 1 {
		t.Fatalf("len(Commands) = %d, want 1", len(fr.Commands))
	}
	cmd := fr.Commands[0]
	if cmd.Kind != KindSet || cmd.Ack || cmd.Port != 1 {
		t.Errorf("Commands[0] = %+v, want SET non-ACK port=1", cmd)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != 1 || cmd.Args[1] != 0 {
		t.Errorf("Commands[0].Args = % X, want [01 00]", cmd.Args)
	}
}

// TestRoundTrip_CommandSequence covers property 1: encode then decode
// yields the original command tuples for a variety of kinds/lengths.
func TestRoundTrip_CommandSequence(t *testing.T) {
	type want struct {
		kind Kind
		ack  bool
		port uint8
		args []byte
	}

	cases := []want{
		{KindSet, false, 1, []byte{1}},
		{KindSet, true, 2, []byte{0xAB}},
		{KindGet, false, 0, nil},
		{KindConfig, false, 3, []byte{0x01, 0x02}},
		{KindDCmd, false, 5, []byte{7}},
	}

	b := NewBuilder(0, 0x0203)
	for _, c := range cases {
		if !b.Add(c.kind, c.ack, c.port, c.args) {
			t.Fatalf("Add(%+v) refused", c)
		}
	}
	raw := b.Bytes()

	d := NewDecoder()
	d.Feed(raw)
	fr, ok := d.Next()
	if !ok {
		t.Fatal("Next() did not produce a frame")
	}
	if len(fr.Commands) != len(cases) {
		t.Fatalf("len(Commands) = %d, want %d", len(fr.Commands), len(cases))
	}
	for i, c := range cases {
		got := fr.Commands[i]
		if got.Kind != c.kind || got.Ack != c.ack || got.Port != c.port {
			t.Errorf("Commands[%d] = %+v, want kind=%v ack=%v port=%v", i, got, c.kind, c.ack, c.port)
		}
		_, padded := packArgs(c.args)
		if !bytes.Equal(got.Args, padded) {
			t.Errorf("Commands[%d].Args = % X, want % X", i, got.Args, padded)
		}
	}
}

// TestChecksumAdditivity covers property 2.
func TestChecksumAdditivity(t *testing.T) {
	b := NewBuilder(0, 1)
	b.Add(KindGet, false, 4, nil)
	raw := b.Bytes()

	var sum byte
	for _, v := range raw[:len(raw)-1] {
		sum += v
	}
	if sum != raw[len(raw)-1] {
		t.Errorf("checksum = %02x, want %02x", raw[len(raw)-1], sum)
	}
}

// TestSingleBytePerturbation_ForcesResync covers property 1's second half:
// any single-byte change to a valid frame must fail the checksum and
// advance the buffer by one byte.
func TestSingleBytePerturbation_ForcesResync(t *testing.T) {
	b := NewBuilder(0, 0x0101)
	b.Add(KindSet, false, 1, []byte{9})
	raw := b.Bytes()

	corrupt := append([]byte(nil), raw...)
	corrupt[7] ^= 0xFF // flip the port byte

	var resyncs int
	d := NewDecoder()
	d.OnResync = func(reason string, dropped byte) { resyncs++ }
	d.Feed(corrupt)

	_, ok := d.Next()
	if ok {
		t.Fatal("Next() decoded a frame from corrupted bytes, want failure")
	}
	if resyncs == 0 {
		t.Error("expected at least one resync byte drop")
	}
}

// TestResyncThenValidFrame: a corrupted frame followed by a clean one
// should still yield the clean frame once enough bytes are dropped.
func TestResyncThenValidFrame(t *testing.T) {
	good := NewBuilder(0, 0x0A0A)
	good.Add(KindGet, true, 7, []byte{3})
	goodBytes := good.Bytes()

	junk := []byte{Preamble, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00} // bad checksum
	stream := append(junk, goodBytes...)

	d := NewDecoder()
	d.Feed(stream)

	fr, ok := d.Next()
	if !ok {
		t.Fatal("Next() failed to recover the valid frame after junk")
	}
	if fr.Src != 0x0A0A {
		t.Errorf("Src = %04x, want 0a0a", fr.Src)
	}
	if len(fr.Commands) != 1 || fr.Commands[0].Port != 7 || !fr.Commands[0].Ack {
		t.Errorf("Commands = %+v, want one ACK command on port 7", fr.Commands)
	}
}

// TestBulkConfigPortEnumeration exercises the §4.1 exception: CONFIG ACK
// on a port in 0xF0..0xFF (other than 0xFE) consumes the rest of the frame as Args instead
// of being sized by halfLen.
func TestBulkConfigPortEnumeration(t *testing.T) {
	b := NewBuilder(0, 0x0505)
	body := []byte{2, 0, 0, 0, 5, 0, 0, 'I', 'n', 0}
	if !b.AddBulk(KindConfig, true, 0xFF, body) {
		t.Fatal("AddBulk refused")
	}
	raw := b.Bytes()

	d := NewDecoder()
	d.Feed(raw)
	fr, ok := d.Next()
	if !ok {
		t.Fatal("Next() did not produce a frame")
	}
	if len(fr.Commands) != 1 {
		t.Fatalf("len(Commands) = %d, want 1", len(fr.Commands))
	}
	cmd := fr.Commands[0]
	if !cmd.Bulk {
		t.Error("expected Bulk=true for CONFIG ACK on port 0xFF")
	}
	if !bytes.Equal(cmd.Args, body) {
		t.Errorf("Args = % X, want % X", cmd.Args, body)
	}
}

// TestDecoder_IncompleteFrame_WaitsForMoreBytes ensures partial frames are
// never emitted (spec.md §4.1 decoding contract).
func TestDecoder_IncompleteFrame_WaitsForMoreBytes(t *testing.T) {
	b := NewBuilder(0, 1)
	b.Add(KindGet, false, 1, nil)
	raw := b.Bytes()

	d := NewDecoder()
	d.Feed(raw[:len(raw)-1]) // withhold the checksum byte
	if _, ok := d.Next(); ok {
		t.Fatal("Next() produced a frame from an incomplete buffer")
	}

	d.Feed(raw[len(raw)-1:])
	if _, ok := d.Next(); !ok {
		t.Fatal("Next() failed once the remaining byte was fed")
	}
}

func TestFrameLenMax_TruncatesOverflow(t *testing.T) {
	b := NewBuilder(0, 1)
	added := 0
	for i := 0; i < 64; i++ {
		if !b.Add(KindSet, false, uint8(i%16), []byte{1, 2, 3, 4}) {
			break
		}
		added++
	}
	if !b.Overflowed() {
		t.Fatal("expected builder to report overflow before filling 64 iterations")
	}
	if FrameHeaderLen+b.Len()+1 > FrameLenMax {
		t.Errorf("final frame size exceeds FrameLenMax: header+payload+checksum = %d", FrameHeaderLen+b.Len()+1)
	}
	if added == 0 {
		t.Error("expected at least one command to fit")
	}
}
