package module

import (
	"testing"
	"time"
)

func TestTouch_CreatesAndUpdatesLastRx(t *testing.T) {
	r := NewRegistry(time.Minute)
	t0 := time.Now()

	m := r.Touch(0x01FF, t0)
	if m.FrameAddr != 0x01FF || !m.LastRx.Equal(t0) {
		t.Fatalf("Touch() = %+v, want FrameAddr=0x1ff LastRx=%v", m, t0)
	}

	t1 := t0.Add(5 * time.Second)
	r.Touch(0x01FF, t1)
	got, ok := r.Get(0x01FF)
	if !ok || !got.LastRx.Equal(t1) {
		t.Fatalf("Get() after second Touch = %+v, ok=%v, want LastRx=%v", got, ok, t1)
	}
}

func TestGetOrCreate_FirstEnqueueBeforeRx(t *testing.T) {
	r := NewRegistry(time.Minute)
	m := r.GetOrCreate(0x0202)
	if m.FrameAddr != 0x0202 {
		t.Fatalf("GetOrCreate() = %+v, want FrameAddr=0x202", m)
	}
	if !m.LastRx.IsZero() {
		t.Error("expected LastRx to be zero for a module never heard from")
	}
}

func TestSetVersion(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.SetVersion(1, "DOMBUS-GPIO", "1.4.2")
	got, ok := r.Get(1)
	if !ok || got.ModuleType != "DOMBUS-GPIO" || got.FirmwareVersion != "1.4.2" {
		t.Fatalf("Get() = %+v, ok=%v, want type/version set", got, ok)
	}
}

func TestRetryPhase_IncrementsAndCaps(t *testing.T) {
	r := NewRegistry(time.Minute)
	const maxPhase = 3

	for i := 0; i < 5; i++ {
		r.IncrementRetryPhase(1, maxPhase)
	}
	got, _ := r.Get(1)
	if got.RetryPhase != maxPhase {
		t.Errorf("RetryPhase = %d, want capped at %d", got.RetryPhase, maxPhase)
	}

	r.ResetRetryPhase(1)
	got, _ = r.Get(1)
	if got.RetryPhase != 0 {
		t.Errorf("RetryPhase after reset = %d, want 0", got.RetryPhase)
	}
}

func TestMarkStatusRefreshed_AppliesDePhaseOffset(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Now()
	r.MarkStatusRefreshed(0x10, now) // frameAddr&0x0F == 0

	got, _ := r.Get(0x10)
	if !got.LastStatus.Equal(now) {
		t.Errorf("LastStatus = %v, want %v (zero offset for frameAddr&0x0F==0)", got.LastStatus, now)
	}

	r.MarkStatusRefreshed(0x13, now) // frameAddr&0x0F == 3
	got, _ = r.Get(0x13)
	want := now.Add(3 * time.Second)
	if !got.LastStatus.Equal(want) {
		t.Errorf("LastStatus = %v, want %v (3s de-phase offset)", got.LastStatus, want)
	}
}

func TestForceStatusRefresh_ZerosLastStatus(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Now()
	r.MarkStatusRefreshed(1, now)
	r.ForceStatusRefresh(1)

	got, _ := r.Get(1)
	if !got.LastStatus.IsZero() {
		t.Errorf("LastStatus = %v, want zero after ForceStatusRefresh", got.LastStatus)
	}
}

// TestEvictStale covers spec.md property 6: a module silent for longer
// than MODULE_ALIVE_TIME, with no pending TX frames, is evicted.
func TestEvictStale(t *testing.T) {
	r := NewRegistry(10 * time.Second)
	t0 := time.Now()

	r.Touch(1, t0)            // will go stale
	r.Touch(2, t0)            // will go stale but has pending frames
	r.Touch(3, t0.Add(9*time.Second)) // still fresh relative to t1

	t1 := t0.Add(11 * time.Second)
	pending := map[FrameAddr]bool{2: true}
	evicted := r.EvictStale(t1, func(addr FrameAddr) bool { return pending[addr] })

	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("evicted = %v, want [1]", evicted)
	}
	if _, ok := r.Get(1); ok {
		t.Error("module 1 should have been evicted")
	}
	if _, ok := r.Get(2); !ok {
		t.Error("module 2 has pending frames and should survive eviction")
	}
	if _, ok := r.Get(3); !ok {
		t.Error("module 3 is within the alive window and should survive eviction")
	}
}

func TestEvictStale_NeverHeardFrom_NotEvicted(t *testing.T) {
	r := NewRegistry(time.Millisecond)
	r.GetOrCreate(1) // enqueue-created, LastRx still zero

	evicted := r.EvictStale(time.Now().Add(time.Hour), nil)
	if len(evicted) != 0 {
		t.Errorf("evicted = %v, want none (module never heard from yet)", evicted)
	}
}

func TestOldestStatusCandidate(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Now()

	r.MarkStatusRefreshed(1, now.Add(5*time.Second))
	r.MarkStatusRefreshed(2, now) // oldest
	r.MarkStatusRefreshed(3, now.Add(10*time.Second))

	got, ok := r.OldestStatusCandidate()
	if !ok || got != 2 {
		t.Errorf("OldestStatusCandidate() = %d, ok=%v, want 2", got, ok)
	}
}

func TestSnapshot_ReturnsAllModules(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.GetOrCreate(1)
	r.GetOrCreate(2)
	r.GetOrCreate(3)

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len(Snapshot()) = %d, want 3", len(snap))
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}
