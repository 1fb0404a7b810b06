package catalog

import "strings"

// ApplyDefaults fills in HA discovery hints and option defaults for a
// newly materialised device, following the port-enumeration defaults
// table (spec.md §9). name is the port name string reported by the
// module; moduleType distinguishes module-specific overrides (DomBusTH).
func ApplyDefaults(d *Device, name, moduleType string, port uint16) {
	switch {
	case d.PortType == PortTypeCustom && d.PortOpt == PortOptSelect:
		applySelectDefaults(d, name)

	case d.PortType == PortTypeCustom && d.PortOpt == PortOptDimmer:
		applyDimmerDefaults(d, name)

	case d.PortType == PortTypeCustom && (d.PortOpt == PortOptImportEnergy || d.PortOpt == PortOptExportEnergy):
		d.HA.Platform = PlatformSensor
		d.HA.DeviceClass = "power"
		d.HA.Unit = "W"

	case d.PortType == PortTypeCustom && d.PortOpt == PortOptVoltage:
		d.HA.Platform = PlatformSensor
		d.HA.DeviceClass = "voltage"
		d.HA.Unit = "V"

	case d.PortType == PortTypeCustom && d.PortOpt == PortOptCurrent:
		d.HA.Platform = PlatformSensor
		d.HA.DeviceClass = "current"
		d.HA.Unit = "A"

	case d.PortType == PortTypeCustom && d.PortOpt == PortOptPowerFactor:
		d.HA.Platform = PlatformSensor
		d.HA.DeviceClass = "power_factor"
		d.Options["A"] = 0.1

	case d.PortType == PortTypeCustom && d.PortOpt == PortOptFrequency:
		d.HA.Platform = PlatformSensor
		d.HA.DeviceClass = "frequency"
		d.HA.Unit = "Hz"
		d.Options["A"] = 0.01

	case d.PortType == PortTypeCustom && d.PortOpt == PortOptTouch:
		d.HA.Platform = PlatformBinarySensor
		d.HA.DeviceClass = "motion"

	case d.PortType == PortTypeInCounter:
		d.Options["DIVIDER"] = 2000
		d.Options["A"] = 1 / 2000.0

	case d.PortType == PortTypeInAnalog && port == 7 && moduleType == "DomBusTH":
		d.Options["A"] = 0.000612695
	}

	switch {
	case strings.Contains(name, "EV State"):
		d.HA.Platform = PlatformSelect
		d.HA.Options = []string{"Disconnected", "Connected", "Charging", "Error"}
	case strings.Contains(name, "EV Mode"):
		d.HA.Platform = PlatformSelect
		d.HA.Options = []string{"Off", "Fast", "Eco", "Solar"}
	}
}

// PlatformFor returns the Home Assistant platform a device should be
// discovered under: d.HA.Platform if ApplyDefaults or an admin `setport`
// override already set one (spec.md §4.7 "controller-side keys … override
// haOpts"), otherwise a default derived from its PortType, grounded on the
// same port-type groupings ValueToHA/HAToValue use.
func PlatformFor(d *Device) Platform {
	if d.HA.Platform != "" {
		return d.HA.Platform
	}
	switch d.PortType {
	case PortTypeInDigital, PortTypeSensorAlarm:
		return PlatformBinarySensor
	case PortTypeOutDigital, PortTypeOutRelay, PortTypeOutRelayLP, PortTypeOutLedStatus, PortTypeInAC:
		return PlatformSwitch
	case PortTypeOutBlind:
		return PlatformCover
	case PortTypeOutDimmer, PortTypeOutAnalog:
		return PlatformNumber
	default:
		return PlatformSensor
	}
}

func applySelectDefaults(d *Device, name string) {
	d.HA.Platform = PlatformSelect
	switch {
	case strings.Contains(name, "S.On"):
		d.HA.Options = []string{"Off", "On"}
	case strings.Contains(name, "S.State"):
		d.HA.Options = []string{"Off", "On", "HiCurr", "LoVolt", "HiDiss", "HiDissLoVolt"}
	}
}

func applyDimmerDefaults(d *Device, name string) {
	d.HA.Platform = PlatformNumber
	if strings.Contains(name, "EV Current") {
		d.HA.Min, d.HA.Max, d.HA.Step, d.HA.Unit = 0, 36, 1, "A"
		return
	}
	d.HA.Min, d.HA.Max, d.HA.Step, d.HA.Unit = 0, 100, 1, "%"
}

// EVSubDevice describes one virtual sub-device an "EV Mode" port
// materialises (spec.md §9: "creates 11 virtual sub-devices for
// PAR1..PAR11 equivalents … via the same port with +0x100, +0x200, …
// offsets"). Min/Max/Step/Unit are grounded on
// original_source/dombusgateway.py's parseConfiguration calls around
// lines 1041-1051.
type EVSubDevice struct {
	PortOffset uint16
	Name       string
	Min, Max   float64
	Step       float64
	Unit       string
}

// NewAuxDevice builds the auxiliary device for a compound-measurement
// primary (spec.md §3: "an auxiliary device ID (port | 0x80) exists iff
// the primary device publishes a compound measurement"). It shares the
// primary's PortType/PortOpt so catalog lookups by type keep working, but
// carries its own HA hints: an energy sensor (spec.md §9 defaults table:
// "auxiliary device_class=energy, unit kWh") for IMPORT_ENERGY/
// EXPORT_ENERGY ports, or a detailed alarm-state sensor (spec.md §4.4:
// "{closed,open,masked,tampered,shorted} carried in the auxiliary
// channel") for SENSOR_ALARM ports.
func NewAuxDevice(primary *Device) *Device {
	aux := NewDevice(primary.ID.AuxID(), primary.PortType, primary.PortOpt, primary.PortName)
	aux.IsAux = true

	switch {
	case primary.PortType == PortTypeCustom && (primary.PortOpt == PortOptImportEnergy || primary.PortOpt == PortOptExportEnergy):
		aux.PortName = primary.PortName + " Energy"
		aux.HA = HAOpts{Platform: PlatformSensor, DeviceClass: "energy", Unit: "kWh"}

	case primary.PortType == PortTypeSensorAlarm:
		aux.PortName = primary.PortName + " Alarm state"
		aux.HA = HAOpts{Platform: PlatformSensor, Options: []string{"closed", "open", "masked", "tampered", "shorted"}}
	}

	return aux
}

// EVModeSubDevices returns the 11 virtual sub-device descriptors for an
// "EV Mode" port.
func EVModeSubDevices() []EVSubDevice {
	return []EVSubDevice{
		{0x100, "EV MaxCurrent", 0, 36, 1, "A"},
		{0x200, "EV MaxPower", 1000, 25000, 100, "W"},
		{0x300, "EV StartPower", 800, 25000, 100, "W"},
		{0x400, "EV StopTime", 5, 600, 1, "s"},
		{0x500, "EV AutoStart", 0, 2, 1, ""},
		{0x600, "EV MaxPower2", 0, 25000, 100, "W"},
		{0x700, "EV MaxPowerTime", 0, 43200, 1, "s"},
		{0x800, "EV MaxPowerTime2", 0, 43200, 1, "s"},
		{0x900, "EV WaitTime", 3, 60, 1, "s"},
		{0xa00, "EV MeterType", 0, 1, 1, ""},
		{0xb00, "EV MinVoltage", 200, 450, 1, "V"},
	}
}
