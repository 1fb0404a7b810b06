package txqueue

import (
	"sync"
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/frame"
	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// Timing constants for the retry ladder and periodic refresh (spec.md §4.2,
// §8 property 5). spec.md names TX_RETRY/RETRY_BASE/MODULE_ALIVE_TIME/
// PERIODIC_STATUS_INTERVAL but does not give numeric values — the Python
// original's DB module that defines them is not present in the retrieval
// pack, so these are implementation choices, documented here.
const (
	// TxRetry caps the retry ladder and the module registry's retryPhase.
	TxRetry = 5

	// RetryBase is the base backoff window; the threshold for phase p is
	// RetryBase << (p+1) (spec.md §4.2).
	RetryBase = 200 * time.Millisecond

	// ModuleAliveTime is MODULE_ALIVE_TIME: a module silent this long, with
	// no pending frames, is evicted.
	ModuleAliveTime = 5 * time.Minute

	// PeriodicStatusInterval is PERIODIC_STATUS_INTERVAL: the minimum gap
	// between unsolicited output-status refreshes for one module.
	PeriodicStatusInterval = 5 * time.Minute
)

// The clear-queue sentinel of spec.md §4.2 "(cmd=0xFF, port=0xFF) clears
// the module's queue" is not accepted by Remove. The wire Kind enum never
// reaches 0xFF, so it is modelled here as an explicit method (ClearModule)
// rather than abusing frame.Kind with an out-of-range value.

// Queue holds one command list per module frame address and implements the
// scheduler tick (spec.md §4.2). Frame packing is bounded by
// frame.FrameLenMax, enforced by the frame.Builder each tick uses.
type Queue struct {
	registry *module.Registry

	mu   sync.Mutex
	cmds map[module.FrameAddr][]Cmd
}

// NewQueue returns an empty Queue backed by registry for liveness/backoff
// bookkeeping.
func NewQueue(registry *module.Registry) *Queue {
	return &Queue{
		registry: registry,
		cmds:     make(map[module.FrameAddr][]Cmd),
	}
}

// Enqueue appends cmd to frameAddr's queue, coalescing with any existing
// command sharing the same key (spec.md §4.2 enqueue, §8 property 4): the
// existing entry's ack flag, args and max(retriesLeft) are overwritten
// rather than appending a duplicate.
func (q *Queue) Enqueue(frameAddr module.FrameAddr, cmd Cmd) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := keyOf(cmd)
	list := q.cmds[frameAddr]
	for i, existing := range list {
		if keyOf(existing) == key {
			if cmd.RetriesLeft < existing.RetriesLeft {
				cmd.RetriesLeft = existing.RetriesLeft
			}
			list[i] = cmd
			q.cmds[frameAddr] = list
			q.registry.GetOrCreate(frameAddr)
			return
		}
	}
	q.cmds[frameAddr] = append(list, cmd)
	q.registry.GetOrCreate(frameAddr)
}

// EnqueueConfig16 is the CONFIG-with-16-bit-value helper (spec.md §4.2):
// body = [subCmd, hi, lo], coalescing on subCmd.
func (q *Queue) EnqueueConfig16(frameAddr module.FrameAddr, port uint8, subCmd byte, value16 uint16) {
	q.Enqueue(frameAddr, Cmd{
		Kind:        frame.KindConfig,
		Port:        port,
		Args:        []byte{subCmd, byte(value16 >> 8), byte(value16)},
		RetriesLeft: TxRetry,
	})
}

// EnqueueAskConfig enqueues a CONFIG/0xFF request for full configuration
// (spec.md §4.2, §4.4 "unknown device + non-ACK command").
func (q *Queue) EnqueueAskConfig(frameAddr module.FrameAddr) {
	q.Enqueue(frameAddr, Cmd{
		Kind:        frame.KindConfig,
		Port:        0xFF,
		RetriesLeft: TxRetry,
	})
}

// Remove drops queue entries matching (kind, port, arg1) from frameAddr's
// queue, where arg1 is the command's first argument byte (0 matches
// commands with no args). Use ClearModule for the sentinel "drop
// everything" case spec.md §4.2 describes.
func (q *Queue) Remove(frameAddr module.FrameAddr, kind frame.Kind, port uint8, arg1 byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.cmds[frameAddr]
	kept := list[:0]
	for _, c := range list {
		var first byte
		if len(c.Args) > 0 {
			first = c.Args[0]
		}
		if c.Kind == kind && c.Port == port && first == arg1 {
			continue
		}
		kept = append(kept, c)
	}
	q.cmds[frameAddr] = kept
}

// ClearModule empties frameAddr's queue outright (spec.md §4.2 sentinel
// cmd=0xFF,port=0xFF).
func (q *Queue) ClearModule(frameAddr module.FrameAddr) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.cmds, frameAddr)
}

// Len reports the number of pending commands for frameAddr.
func (q *Queue) Len(frameAddr module.FrameAddr) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds[frameAddr])
}

// HasPending reports whether frameAddr has any queued commands, for the
// Module Registry's eviction guard.
func (q *Queue) HasPending(frameAddr module.FrameAddr) bool {
	return q.Len(frameAddr) > 0
}
