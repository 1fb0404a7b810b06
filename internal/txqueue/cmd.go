package txqueue

import "github.com/CreasolTech/DomBusGateway/internal/frame"

// Cmd is one queued TX command for a module (spec.md §3 "TX Command").
type Cmd struct {
	Kind        frame.Kind
	Ack         bool
	Port        uint8
	Args        []byte
	RetriesLeft int
}

// coalesceKey identifies commands spec.md §4.2/§8 property 4 treats as
// duplicates: same (kind, payloadLenCode, port), and for CMD_CONFIG also
// the same first argument byte (the sub-command selector).
type coalesceKey struct {
	kind    frame.Kind
	halfLen int
	port    uint8
	subCmd  byte
	hasSub  bool
}

func keyOf(c Cmd) coalesceKey {
	k := coalesceKey{kind: c.Kind, halfLen: frame.HalfLen(c.Args), port: c.Port}
	if c.Kind == frame.KindConfig && len(c.Args) > 0 {
		k.subCmd = c.Args[0]
		k.hasSub = true
	}
	return k
}
