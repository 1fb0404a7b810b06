package catalog

import (
	"fmt"
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// DeviceID composes a frame address and port into the catalog's primary
// key (spec.md §3: "device ID = (frameAddr ≪ 16) | port").
type DeviceID uint64

// NewDeviceID builds a DeviceID from a frame address and port number.
func NewDeviceID(frameAddr module.FrameAddr, port uint16) DeviceID {
	return DeviceID(uint64(frameAddr)<<16 | uint64(port))
}

// FrameAddr extracts the owning module's frame address.
func (id DeviceID) FrameAddr() module.FrameAddr {
	return module.FrameAddr(uint64(id) >> 16)
}

// Port extracts the port number.
func (id DeviceID) Port() uint16 {
	return uint16(id)
}

// AuxID returns the auxiliary device ID for a compound measurement
// (spec.md §3: "an auxiliary device ID (port | 0x80) exists iff the
// primary device publishes a compound measurement").
func (id DeviceID) AuxID() DeviceID {
	return NewDeviceID(id.FrameAddr(), id.Port()|0x80)
}

// Name renders the textual device ID form used in MQTT topics and admin
// output (spec.md §4.6): "<frameAddr:06x>_<port:04x>". Persistence files
// key devices by the decimal integer ID instead.
func (id DeviceID) Name() string {
	return fmt.Sprintf("%06x_%04x", uint32(id.FrameAddr()), id.Port())
}

// ParseDeviceIDName is the inverse of DeviceID.Name, used by the Publisher
// to resolve an inbound MQTT command topic's device ID segment back to a
// DeviceID (spec.md §4.6).
func ParseDeviceIDName(name string) (DeviceID, error) {
	var frameAddr uint32
	var port uint16
	if _, err := fmt.Sscanf(name, "%06x_%04x", &frameAddr, &port); err != nil {
		return 0, fmt.Errorf("catalog: %q is not a valid device ID", name)
	}
	return NewDeviceID(module.FrameAddr(frameAddr), port), nil
}

// HAOpts carries controller-side discovery hints merged into the
// discovery config payload (spec.md §6 broker topics, §4.7 admin
// "controller-side keys override haOpts").
type HAOpts struct {
	Platform    Platform
	DeviceClass string
	Unit        string
	Icon        string
	Min, Max    float64
	Step        float64
	Options     []string // select platform's option list, index*10 = raw
}

// Device is a record keyed by DeviceID (spec.md §3).
type Device struct {
	ID       DeviceID
	PortType PortType
	PortOpt  PortOpt
	PortName string
	Options  map[string]float64 // A, B, CAL, INIT, PARn, DIVIDER, HWADDR, ADDR, FUNCTION…
	HA       HAOpts

	// IsAux marks the auxiliary device materialised alongside a
	// compound-measurement primary (spec.md §3, §9): it shares PortType/
	// PortOpt with its primary but carries the energy total, or the
	// detailed alarm state, instead of the primary's own published value.
	IsAux bool

	// Cached runtime state. Value holds the bus-native reading already
	// decoded by the Protocol Engine (temperature in Celsius, counters as
	// their raw pulse count, booleans as 0/1…); ValueHA is its normalised
	// controller-visible form.
	Value        float64
	ValueHA      string
	CounterValue uint16
	CounterTime  time.Time
	Energy       float64
	ema          float64
	emaSet       bool

	// Publication bookkeeping.
	LastPublishedValueHA string
	LastPublishedAt      time.Time
	LastPublishedConfig  string // last config topic string actually published, for retire-on-change

	// OppositeID is the resolved device this one mutually excludes (spec.md
	// §4.5 OPPOSITE rule), parsed once from the OPPOSITE option string by
	// ParseOppositeSpec. HasOpposite distinguishes "no OPPOSITE option" from
	// a valid zero-valued DeviceID.
	OppositeID  DeviceID
	HasOpposite bool
}

// NewDevice returns a Device with A=1,B=0 defaults (spec.md §3 invariant:
// "A=1, B=0 if unspecified").
func NewDevice(id DeviceID, portType PortType, portOpt PortOpt, portName string) *Device {
	return &Device{
		ID:       id,
		PortType: portType,
		PortOpt:  portOpt,
		PortName: portName,
		Options:  map[string]float64{"A": 1, "B": 0},
	}
}

// A returns the calibration multiplier, defaulting to 1.
func (d *Device) A() float64 {
	if v, ok := d.Options["A"]; ok {
		return v
	}
	return 1
}

// B returns the calibration offset, defaulting to 0.
func (d *Device) B() float64 {
	return d.Options["B"]
}

// HasCompoundMeasurement reports whether this device publishes an
// auxiliary channel (power+energy meters, alarm state).
func (d *Device) HasCompoundMeasurement() bool {
	return (d.PortType == PortTypeCustom && (d.PortOpt == PortOptImportEnergy || d.PortOpt == PortOptExportEnergy)) ||
		d.PortType == PortTypeSensorAlarm
}
