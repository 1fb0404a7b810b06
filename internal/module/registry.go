package module

import (
	"sync"
	"time"
)

// FrameAddr is the composite bus+module identifier from spec.md §3:
// "frameAddr = (busID ≪ 16) | moduleAddr". It is the key shared by the
// Module Registry, TX Queue and Device Catalog, distinct from the 16-bit
// per-bus wire address frame.Frame.Src/Dst carries on the serial link.
type FrameAddr uint32

// NewFrameAddr composes a frame address from a bus ID and the module's
// 16-bit wire address.
func NewFrameAddr(busID uint8, moduleAddr uint16) FrameAddr {
	return FrameAddr(uint32(busID)<<16 | uint32(moduleAddr))
}

// BusID extracts the bus identifier from a composite frame address.
func (a FrameAddr) BusID() uint8 {
	return uint8(a >> 16)
}

// ModuleAddr extracts the 16-bit per-bus wire address from a composite
// frame address.
func (a FrameAddr) ModuleAddr() uint16 {
	return uint16(a)
}

// Module is the per-address record tracked by the registry (spec.md §3).
type Module struct {
	FrameAddr       FrameAddr
	LastTx          time.Time
	LastRx          time.Time
	LastStatus      time.Time
	RetryPhase      int
	ModuleType      string
	FirmwareVersion string
}

// Registry holds one Module per frame address. It is safe for concurrent
// use by the bus reader goroutine, the TX scheduler and the admin server.
type Registry struct {
	aliveTime time.Duration

	mu      sync.RWMutex
	modules map[FrameAddr]*Module
}

// NewRegistry returns an empty Registry. aliveTime is the MODULE_ALIVE_TIME
// window (spec.md §3, §4.2 step 6): a module not heard from within this
// window, with no pending TX frames, is evicted.
func NewRegistry(aliveTime time.Duration) *Registry {
	return &Registry{
		aliveTime: aliveTime,
		modules:   make(map[FrameAddr]*Module),
	}
}

// Touch records that a frame was received from frameAddr at now, creating
// the module record on first contact (spec.md §3: "created on first
// reception from an address or on first enqueue").
func (r *Registry) Touch(frameAddr FrameAddr, now time.Time) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.getOrCreateLocked(frameAddr)
	m.LastRx = now
	return m
}

// GetOrCreate returns the module for frameAddr, creating it if this is the
// first enqueue to an address never yet heard from.
func (r *Registry) GetOrCreate(frameAddr FrameAddr) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(frameAddr)
}

func (r *Registry) getOrCreateLocked(frameAddr FrameAddr) *Module {
	m, ok := r.modules[frameAddr]
	if !ok {
		m = &Module{FrameAddr: frameAddr}
		r.modules[frameAddr] = m
	}
	return m
}

// Get returns the module for frameAddr without creating it.
func (r *Registry) Get(frameAddr FrameAddr) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[frameAddr]
	if !ok {
		return Module{}, false
	}
	return *m, true
}

// SetVersion stores the module type and firmware revision learned from a
// CMD_CONFIG/port-0xFE ACK (spec.md §4.4).
func (r *Registry) SetVersion(frameAddr FrameAddr, moduleType, firmwareVersion string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.getOrCreateLocked(frameAddr)
	m.ModuleType = moduleType
	m.FirmwareVersion = firmwareVersion
}

// MarkTx records that a frame was just transmitted to frameAddr.
func (r *Registry) MarkTx(frameAddr FrameAddr, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.getOrCreateLocked(frameAddr)
	m.LastTx = now
}

// IncrementRetryPhase bumps the module's backoff phase, capping at maxPhase
// (spec.md §4.2 step 5: "increment retryPhase, capping at TX_RETRY−1").
func (r *Registry) IncrementRetryPhase(frameAddr FrameAddr, maxPhase int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.getOrCreateLocked(frameAddr)
	if m.RetryPhase < maxPhase {
		m.RetryPhase++
	}
	return m.RetryPhase
}

// ResetRetryPhase clears the backoff phase, called once a module responds.
func (r *Registry) ResetRetryPhase(frameAddr FrameAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[frameAddr]; ok {
		m.RetryPhase = 0
	}
}

// MarkStatusRefreshed records that a periodic status push was just queued
// for frameAddr, applying the de-phasing offset from spec.md §4.2: "set
// lastStatusSec = now + (frameAddr & 0x0F) as a tiny de-phasing offset".
func (r *Registry) MarkStatusRefreshed(frameAddr FrameAddr, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.getOrCreateLocked(frameAddr)
	offset := time.Duration(frameAddr&0x0F) * time.Second
	m.LastStatus = now.Add(offset)
}

// ForceStatusRefresh clears the last-status timestamp so the next
// scheduler tick refreshes this module immediately (spec.md §4.4: a
// version ACK "forces immediate periodic status refresh for that
// module").
func (r *Registry) ForceStatusRefresh(frameAddr FrameAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.getOrCreateLocked(frameAddr)
	m.LastStatus = time.Time{}
}

// Evict removes frameAddr from the registry.
func (r *Registry) Evict(frameAddr FrameAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.modules, frameAddr)
}

// EvictStale removes every module whose elapsed time since LastRx exceeds
// aliveTime, skipping any for which hasPending reports queued TX frames
// (spec.md §4.2 step 6). It returns the evicted addresses.
func (r *Registry) EvictStale(now time.Time, hasPending func(frameAddr FrameAddr) bool) []FrameAddr {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []FrameAddr
	for addr, m := range r.modules {
		if m.LastRx.IsZero() {
			continue // never heard from; enqueue-created, not yet eligible
		}
		if now.Sub(m.LastRx) <= r.aliveTime {
			continue
		}
		if hasPending != nil && hasPending(addr) {
			continue
		}
		delete(r.modules, addr)
		evicted = append(evicted, addr)
	}
	return evicted
}

// Snapshot returns a copy of every tracked module, for admin introspection
// (showbus/showmodule) and scheduler selection.
func (r *Registry) Snapshot() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, *m)
	}
	return out
}

// OldestStatusCandidate returns the frame address with the smallest
// LastStatus timestamp, for the scheduler's periodic-refresh selection
// (spec.md §4.2: "select the module with the smallest lastStatusSec").
func (r *Registry) OldestStatusCandidate() (FrameAddr, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best    FrameAddr
		bestSet bool
		bestAt  time.Time
	)
	for addr, m := range r.modules {
		if !bestSet || m.LastStatus.Before(bestAt) {
			best, bestAt, bestSet = addr, m.LastStatus, true
		}
	}
	return best, bestSet
}

// Len reports the number of tracked modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
