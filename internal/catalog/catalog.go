package catalog

import (
	"reflect"
	"sync"
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// Config-diff bits used by ShouldRepublishConfig (spec.md §9 Open
// Questions: "diff & 19 then diff & 27 … mask semantics inconsistent
// between versions. An implementer should choose one … and document
// it"). This implementation chooses diff&19 — PortType, PortOpt and HA
// hints force a discovery republish; Options alone (calibration tweaks
// via admin `setport KEY=VALUE`) do not, since those never change the
// entity's platform/shape in Home Assistant.
const (
	diffPortType = 1 << iota
	diffPortOpt
	diffOptions
	diffHA = 1 << 4
)

const republishMask = diffPortType | diffPortOpt | diffHA

// ComputeConfigDiff compares two device snapshots and returns the bitmask
// of what changed, for ShouldRepublishConfig.
func ComputeConfigDiff(old, new *Device) int {
	var diff int
	if old.PortType != new.PortType {
		diff |= diffPortType
	}
	if old.PortOpt != new.PortOpt {
		diff |= diffPortOpt
	}
	if len(old.Options) != len(new.Options) {
		diff |= diffOptions
	} else {
		for k, v := range new.Options {
			if old.Options[k] != v {
				diff |= diffOptions
				break
			}
		}
	}
	if !reflect.DeepEqual(old.HA, new.HA) {
		diff |= diffHA
	}
	return diff
}

// ShouldRepublishConfig reports whether a config diff warrants retiring
// the old discovery entity and publishing a new one (spec.md §4.5
// "Configuration publication").
func ShouldRepublishConfig(diff int) bool {
	return diff&republishMask != 0
}

// Catalog is the indexed set of port-devices (spec.md §4.5), safe for
// concurrent use by the Protocol Engine, Publisher and Admin Command
// Processor.
type Catalog struct {
	publishInterval time.Duration

	mu      sync.RWMutex
	devices map[DeviceID]*Device
}

// NewCatalog returns an empty Catalog. publishInterval is the heartbeat
// window for the change+heartbeat publication policy (spec.md §4.5, §8
// property 7).
func NewCatalog(publishInterval time.Duration) *Catalog {
	return &Catalog{
		publishInterval: publishInterval,
		devices:         make(map[DeviceID]*Device),
	}
}

// Get returns the device for id.
func (c *Catalog) Get(id DeviceID) (*Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[id]
	return d, ok
}

// Put inserts or replaces a device record.
func (c *Catalog) Put(d *Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices[d.ID] = d
}

// Remove deletes a device (admin `rmmodule`, spec.md §4.7).
func (c *Catalog) Remove(id DeviceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.devices, id)
}

// Snapshot returns every tracked device, for persistence and admin
// introspection.
func (c *Catalog) Snapshot() []*Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d)
	}
	return out
}

// DevicesForModule returns every device owned by frameAddr, for admin
// `showmodule`/`rmmodule` (spec.md §4.7) and persistence snapshots scoped
// to one module.
func (c *Catalog) DevicesForModule(frameAddr module.FrameAddr) []*Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Device
	for id, d := range c.devices {
		if id.FrameAddr() == frameAddr {
			out = append(out, d)
		}
	}
	return out
}

// ShouldPublish implements the change+heartbeat policy (spec.md §4.5, §8
// property 7): publish when the normalised value changed, or when at
// least publishInterval has elapsed since the last publication.
func (c *Catalog) ShouldPublish(d *Device, now time.Time) bool {
	if d.ValueHA != d.LastPublishedValueHA {
		return true
	}
	return d.LastPublishedAt.IsZero() || now.Sub(d.LastPublishedAt) >= c.publishInterval
}

// MarkPublished records that d's current ValueHA was just published.
func (c *Catalog) MarkPublished(d *Device, now time.Time) {
	d.LastPublishedValueHA = d.ValueHA
	d.LastPublishedAt = now
}
