package serialbus

import (
	"sort"

	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/config"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/logging"
)

// Manager owns every configured Bus, keyed by bus id. internal/gateway
// builds one Manager from config.Config.Buses at startup and adapts its
// Buses method to satisfy internal/admin's BusLister interface.
type Manager struct {
	buses map[uint8]*Bus
}

// NewManager constructs one Bus per entry in cfg. Ports are not opened yet.
func NewManager(cfg map[int]config.BusConfig, logger *logging.Logger) *Manager {
	m := &Manager{buses: make(map[uint8]*Bus, len(cfg))}
	for id, bc := range cfg {
		m.buses[uint8(id)] = New(uint8(id), bc, logger)
	}
	return m
}

// Get returns the Bus for id, if configured.
func (m *Manager) Get(id uint8) (*Bus, bool) {
	b, ok := m.buses[id]
	return b, ok
}

// IDs returns every configured bus id in ascending order.
func (m *Manager) IDs() []uint8 {
	ids := make([]uint8, 0, len(m.buses))
	for id := range m.buses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OpenAll opens every configured bus. A bus that fails to open is logged
// and left out of service; it does not stop the remaining buses from
// starting (spec.md §7: serial failures are log-and-continue).
func (m *Manager) OpenAll(logger *logging.Logger) {
	for _, id := range m.IDs() {
		b := m.buses[id]
		if err := b.Open(); err != nil {
			logger.Error("failed to open serial bus", "bus", id, "path", b.Path(), "error", err)
		}
	}
}

// CloseAll closes every bus, best-effort.
func (m *Manager) CloseAll() {
	for _, b := range m.buses {
		b.Close()
	}
}

// Buses reports a path/connected snapshot per configured bus id.
func (m *Manager) Buses() map[uint8]Status {
	out := make(map[uint8]Status, len(m.buses))
	for id, b := range m.buses {
		out[id] = b.Status()
	}
	return out
}
