package persistence

import (
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// moduleRecord is Modules.json's per-entry shape (spec.md §4.8 "each
// Device serialises its configuration and the snapshot of runtime
// state"; for a module there is no per-port configuration, only the
// identity learned from its version ACK — original_source/ persists the
// whole ad hoc Modules dict, but only moduleType/firmwareVersion survive
// a restart meaningfully since LastRx/RetryPhase are session-local).
type moduleRecord struct {
	ModuleType      string `json:"moduleType"`
	FirmwareVersion string `json:"firmwareVersion"`
}

func newModuleRecord(m module.Module) moduleRecord {
	return moduleRecord{ModuleType: m.ModuleType, FirmwareVersion: m.FirmwareVersion}
}

// deviceRecord is Devices.json's per-entry shape (spec.md §4.8: config
// plus "value, valueHA, counterValue, counterTime, energy, topic2
// names"; topic2 is rendered from OppositeID/HasOpposite on load since
// topic names themselves are derived, not stored, in this implementation
// — grounded on original_source/dombusgateway.py's to_dict/from_dict).
type deviceRecord struct {
	PortType catalog.PortType   `json:"portType"`
	PortOpt  catalog.PortOpt    `json:"portOpt"`
	PortName string             `json:"portName"`
	Options  map[string]float64 `json:"options"`
	HA       catalog.HAOpts     `json:"ha"`
	IsAux    bool               `json:"isAux,omitempty"`

	OppositeID  catalog.DeviceID `json:"oppositeId,omitempty"`
	HasOpposite bool             `json:"hasOpposite,omitempty"`

	Value        float64   `json:"value"`
	ValueHA      string    `json:"valueHA"`
	CounterValue uint16    `json:"counterValue"`
	CounterTime  time.Time `json:"counterTime,omitempty"`
	Energy       float64   `json:"energy"`
}

func newDeviceRecord(d *catalog.Device) deviceRecord {
	return deviceRecord{
		PortType:     d.PortType,
		PortOpt:      d.PortOpt,
		PortName:     d.PortName,
		Options:      d.Options,
		HA:           d.HA,
		IsAux:        d.IsAux,
		OppositeID:   d.OppositeID,
		HasOpposite:  d.HasOpposite,
		Value:        d.Value,
		ValueHA:      d.ValueHA,
		CounterValue: d.CounterValue,
		CounterTime:  d.CounterTime,
		Energy:       d.Energy,
	}
}

// toDevice rebuilds a *catalog.Device from a loaded record, keyed by id.
func (r deviceRecord) toDevice(id catalog.DeviceID) *catalog.Device {
	d := catalog.NewDevice(id, r.PortType, r.PortOpt, r.PortName)
	if r.Options != nil {
		d.Options = r.Options
	}
	d.HA = r.HA
	d.IsAux = r.IsAux
	d.OppositeID = r.OppositeID
	d.HasOpposite = r.HasOpposite
	d.Value = r.Value
	d.ValueHA = r.ValueHA
	d.CounterValue = r.CounterValue
	d.CounterTime = r.CounterTime
	d.Energy = r.Energy
	return d
}
