package catalog

// PortType is the bus-reported kind of a port (spec.md §3). Values are
// assigned arbitrarily since original_source/'s numeric DB.PORTTYPE_*
// codes live in an external module not present in the retrieval pack;
// only the names and behaviour in spec.md §4.4/§4.5/§9 are grounded.
type PortType uint32

const (
	PortTypeUnknown PortType = iota
	PortTypeInDigital
	PortTypeOutDigital
	PortTypeOutRelay
	PortTypeOutRelayLP
	PortTypeOutDimmer
	PortTypeOutAnalog
	PortTypeOutFlash
	PortTypeOutBuzzer
	PortTypeOutLedStatus
	PortTypeOutBlind
	PortTypeInAnalog
	PortTypeInCounter
	PortTypeInTwinButton
	PortTypeInAC
	PortTypeSensorTemp
	PortTypeSensorHum
	PortTypeSensorTempHum
	PortTypeSensorDistance
	PortTypeSensorAlarm
	PortTypeCustom
)

var portTypeNames = map[PortType]string{
	PortTypeInDigital:      "IN_DIGITAL",
	PortTypeOutDigital:     "OUT_DIGITAL",
	PortTypeOutRelay:       "OUT_RELAY",
	PortTypeOutRelayLP:     "OUT_RELAY_LP",
	PortTypeOutDimmer:      "OUT_DIMMER",
	PortTypeOutAnalog:      "OUT_ANALOG",
	PortTypeOutFlash:       "OUT_FLASH",
	PortTypeOutBuzzer:      "OUT_BUZZER",
	PortTypeOutLedStatus:   "OUT_LEDSTATUS",
	PortTypeOutBlind:       "OUT_BLIND",
	PortTypeInAnalog:       "IN_ANALOG",
	PortTypeInCounter:      "IN_COUNTER",
	PortTypeInTwinButton:   "IN_TWINBUTTON",
	PortTypeInAC:           "IN_AC",
	PortTypeSensorTemp:     "SENSOR_TEMP",
	PortTypeSensorHum:      "SENSOR_HUM",
	PortTypeSensorTempHum:  "SENSOR_TEMP_HUM",
	PortTypeSensorDistance: "SENSOR_DISTANCE",
	PortTypeSensorAlarm:    "SENSOR_ALARM",
	PortTypeCustom:         "CUSTOM",
}

var portTypeByName = func() map[string]PortType {
	out := make(map[string]PortType, len(portTypeNames))
	for t, n := range portTypeNames {
		out[n] = t
	}
	return out
}()

func (t PortType) String() string {
	if n, ok := portTypeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParsePortType resolves an admin `setport` type token (spec.md §4.7) to
// a PortType, reporting false for an unrecognised name.
func ParsePortType(name string) (PortType, bool) {
	t, ok := portTypeByName[name]
	return t, ok
}

// PortOpt is the 16-bit sub-modifier attached to a port (spec.md §3).
// Plain digital ports carry combinable flags (INVERTED, PULLUP); CUSTOM
// ports instead use a single enumerated selector value (SELECT, DIMMER,
// IMPORT_ENERGY, …) as spec.md §4.5/§9 describes. Both are modelled as
// the same uint16 space, matching the loose typing in original_source/.
type PortOpt uint16

const (
	// Flags combinable with plain digital/analog port types.
	PortOptInverted PortOpt = 1 << iota
	PortOptPullup
)

const (
	// Enumerated selectors used only with PortTypeCustom.
	PortOptSelect PortOpt = iota + 100
	PortOptDimmer
	PortOptImportEnergy
	PortOptExportEnergy
	PortOptVoltage
	PortOptCurrent
	PortOptPowerFactor
	PortOptFrequency
	PortOptTouch
	PortOptLatchingRelay
	PortOptAddress
)

var portOptNames = map[PortOpt]string{
	PortOptInverted:      "INVERTED",
	PortOptPullup:        "PULLUP",
	PortOptSelect:        "SELECT",
	PortOptDimmer:        "DIMMER",
	PortOptImportEnergy:  "IMPORT_ENERGY",
	PortOptExportEnergy:  "EXPORT_ENERGY",
	PortOptVoltage:       "VOLTAGE",
	PortOptCurrent:       "CURRENT",
	PortOptPowerFactor:   "POWER_FACTOR",
	PortOptFrequency:     "FREQUENCY",
	PortOptTouch:         "TOUCH",
	PortOptLatchingRelay: "LATCHING_RELAY",
	PortOptAddress:       "ADDRESS",
}

var portOptByName = func() map[string]PortOpt {
	out := make(map[string]PortOpt, len(portOptNames))
	for o, n := range portOptNames {
		out[n] = o
	}
	return out
}()

func (o PortOpt) String() string {
	if n, ok := portOptNames[o]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParsePortOpt resolves an admin `setport` option token to a PortOpt.
func ParsePortOpt(name string) (PortOpt, bool) {
	o, ok := portOptByName[name]
	return o, ok
}

// Platform is the Home Assistant component a device is discovered under.
type Platform string

const (
	PlatformSwitch       Platform = "switch"
	PlatformSensor       Platform = "sensor"
	PlatformBinarySensor Platform = "binary_sensor"
	PlatformCover        Platform = "cover"
	PlatformNumber       Platform = "number"
	PlatformSelect       Platform = "select"
	PlatformLight        Platform = "light"
)
