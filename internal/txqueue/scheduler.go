package txqueue

import (
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/frame"
	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// StatusSnapshot supplies the re-transmittable output state for a periodic
// refresh (spec.md §4.2: "push that module's output-state snapshot into
// its queue, re-transmitting known values for outputs"). The gateway
// wires this to the Device Catalog.
type StatusSnapshot func(frameAddr module.FrameAddr) []Cmd

// TxFrame is one assembled outbound frame ready for the bus transport.
type TxFrame struct {
	FrameAddr  module.FrameAddr
	ModuleAddr uint16
	Bytes      []byte
}

// Tick runs one scheduler pass over every module with a non-empty queue
// (spec.md §4.2). srcAddr is this gateway's address on the bus, used as
// the frame's src field. snapshot supplies the periodic-refresh body; it
// may be nil if the catalog has nothing queued yet.
//
// Returns at most one frame: the scheduler transmits to a single module
// per tick, mirroring the original's single-threaded cooperative model
// (spec.md §9).
func (q *Queue) Tick(now time.Time, srcAddr uint16, snapshot StatusSnapshot) (TxFrame, bool) {
	if fr, ok := q.drainDue(now, srcAddr); ok {
		return fr, true
	}
	return q.refreshOldest(now, srcAddr, snapshot)
}

// drainDue finds a module whose backoff window has elapsed and packs a
// frame from its queue.
func (q *Queue) drainDue(now time.Time, srcAddr uint16) (TxFrame, bool) {
	for _, addr := range q.addrsWithPending() {
		m, _ := q.registry.Get(addr)
		threshold := RetryBase << (m.RetryPhase + 1)
		if !m.LastTx.IsZero() && now.Sub(m.LastTx) <= threshold {
			continue
		}

		fr, ok := q.buildFrame(addr, now, srcAddr)
		if !ok {
			continue
		}
		return fr, true
	}
	return TxFrame{}, false
}

// addrsWithPending lists frame addresses with a non-empty queue. Order is
// unspecified (map iteration); the scheduler is fair across ticks since
// every due module is revisited on the next call.
func (q *Queue) addrsWithPending() []module.FrameAddr {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]module.FrameAddr, 0, len(q.cmds))
	for addr, list := range q.cmds {
		if len(list) > 0 {
			out = append(out, addr)
		}
	}
	return out
}

// buildFrame implements spec.md §4.2 steps 1-5: ACK-first ordering, frame
// packing up to frameLenMax, retry bookkeeping, and backoff-phase advance.
func (q *Queue) buildFrame(addr module.FrameAddr, now time.Time, srcAddr uint16) (TxFrame, bool) {
	q.mu.Lock()
	list := q.cmds[addr]
	if len(list) == 0 {
		q.mu.Unlock()
		return TxFrame{}, false
	}

	working := make([]Cmd, 0, len(list))
	for _, c := range list {
		if c.Ack {
			working = append(working, c)
		}
	}
	for _, c := range list {
		if !c.Ack {
			working = append(working, c)
		}
	}

	b := frame.NewBuilder(addr.ModuleAddr(), srcAddr)
	var remaining []Cmd
	appended := map[int]bool{}

	for i, c := range working {
		if !b.Add(c.Kind, c.Ack, c.Port, c.Args) {
			break
		}
		appended[i] = true
		if c.Ack || c.RetriesLeft <= 1 {
			continue // dropped: not carried into remaining
		}
		c.RetriesLeft--
		remaining = append(remaining, c)
	}
	for i, c := range working {
		if !appended[i] {
			remaining = append(remaining, c)
		}
	}

	q.cmds[addr] = remaining
	q.mu.Unlock()

	if b.Len() == 0 {
		return TxFrame{}, false
	}

	q.registry.IncrementRetryPhase(addr, TxRetry-1)
	q.registry.MarkTx(addr, now)

	return TxFrame{FrameAddr: addr, ModuleAddr: addr.ModuleAddr(), Bytes: b.Bytes()}, true
}

// refreshOldest implements spec.md §4.2's fallback: when nothing was
// transmitted this tick, the module with the smallest lastStatusSec gets
// its output state re-queued if PeriodicStatusInterval has elapsed.
func (q *Queue) refreshOldest(now time.Time, srcAddr uint16, snapshot StatusSnapshot) (TxFrame, bool) {
	addr, ok := q.registry.OldestStatusCandidate()
	if !ok {
		return TxFrame{}, false
	}
	m, _ := q.registry.Get(addr)
	if !m.LastStatus.IsZero() && now.Sub(m.LastStatus) <= PeriodicStatusInterval {
		return TxFrame{}, false
	}
	if snapshot == nil {
		return TxFrame{}, false
	}

	cmds := snapshot(addr)
	for _, c := range cmds {
		q.Enqueue(addr, c)
	}
	q.registry.MarkStatusRefreshed(addr, now)

	if len(cmds) == 0 {
		return TxFrame{}, false
	}
	return q.buildFrame(addr, now, srcAddr)
}

// EvictStale clears the queues of every module the registry evicts
// (spec.md §4.2 step 6 / §8 property 6).
func (q *Queue) EvictStale(now time.Time) []module.FrameAddr {
	evicted := q.registry.EvictStale(now, q.HasPending)
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, addr := range evicted {
		delete(q.cmds, addr)
	}
	return evicted
}
