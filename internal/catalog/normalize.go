package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// roundTo snaps v to the given decimal precision (spec.md §4.5
// "number/sensor: pass-through with 0.01 precision snap").
func roundTo(v float64, precision float64) float64 {
	return math.Round(v/precision) * precision
}

// ValueToHA normalises d.Value into its controller-visible form (spec.md
// §4.5). The result is also cached into d.ValueHA.
func ValueToHA(d *Device) string {
	raw := d.Value

	switch {
	case d.HA.Platform == PlatformSelect:
		idx := int(raw) / 10
		if idx >= 0 && idx < len(d.HA.Options) {
			d.ValueHA = d.HA.Options[idx]
		} else {
			d.ValueHA = ""
		}

	case isSwitchLike(d):
		d.ValueHA = onOff(raw != 0)

	case d.PortType == PortTypeInTwinButton || d.PortType == PortTypeOutBlind:
		switch raw {
		case 0:
			d.ValueHA = "stopped"
		case 1, 10:
			d.ValueHA = "closing"
		case 2, 20:
			d.ValueHA = "opening"
		default:
			d.ValueHA = "stopped"
		}

	case d.PortType == PortTypeSensorTemp || d.PortType == PortTypeSensorTempHum:
		d.ValueHA = strconv.FormatFloat(roundTo(raw, 0.1), 'f', 1, 64)

	case d.PortType == PortTypeSensorHum:
		d.ValueHA = strconv.FormatFloat(raw/10, 'f', 1, 64)

	case d.PortType == PortTypeInAnalog || d.PortType == PortTypeSensorDistance:
		d.ValueHA = strconv.FormatFloat(raw, 'f', -1, 64)

	case d.PortType == PortTypeInCounter:
		if d.HA.DeviceClass == "power" {
			v := int32(raw)
			if v >= 32768 {
				v -= 65536
			}
			d.ValueHA = strconv.Itoa(int(v))
		} else {
			d.ValueHA = strconv.FormatUint(uint64(d.CounterValue), 10)
		}

	case d.PortType == PortTypeOutDimmer:
		d.ValueHA = strconv.FormatFloat(roundTo(raw*5, 0.01), 'f', -1, 64)

	case d.IsAux && d.PortType == PortTypeSensorAlarm:
		idx := int(raw)
		if idx >= 0 && idx < len(d.HA.Options) {
			d.ValueHA = d.HA.Options[idx]
		} else {
			d.ValueHA = "unknown"
		}

	case !d.IsAux && d.PortType == PortTypeSensorAlarm:
		// Primary channel stays a plain binary_sensor regardless of
		// device_class; the detailed {closed,open,masked,tampered,shorted}
		// state is published on the auxiliary channel above.
		d.ValueHA = onOff(!(raw == 0 || raw == 2))

	default:
		d.ValueHA = strconv.FormatFloat(roundTo(raw, 0.01), 'f', -1, 64)
	}

	return d.ValueHA
}

func isSwitchLike(d *Device) bool {
	switch d.PortType {
	case PortTypeOutDigital, PortTypeOutRelay, PortTypeOutRelayLP, PortTypeOutLedStatus, PortTypeInAC:
		return true
	}
	return d.HA.Platform == PlatformSwitch
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// HAToValue is the inverse of ValueToHA: it turns a controller-issued
// command payload into the bus-native value to transmit (spec.md §4.5).
func HAToValue(d *Device, payload string) (float64, error) {
	trimmed := strings.TrimSpace(payload)

	switch strings.ToUpper(trimmed) {
	case "OFF", "STOP":
		return 0, nil
	case "ON":
		return 1, nil
	case "CLOSE":
		return 10, nil
	case "OPEN":
		return 20, nil
	}

	if d.HA.Platform == PlatformSelect {
		for i, opt := range d.HA.Options {
			if opt == trimmed {
				return float64(i * 10), nil
			}
		}
		return 0, fmt.Errorf("catalog: %q is not one of %v", trimmed, d.HA.Options)
	}

	num, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("catalog: cannot parse %q as a command value: %w", payload, err)
	}

	switch d.PortType {
	case PortTypeOutAnalog:
		num *= 10 // 0.1V step
	case PortTypeOutDimmer:
		num /= 5
		if num > 20 {
			num = 20
		}
	}

	if d.HA.DeviceClass == "power" && num < 0 {
		num = float64(uint16(int32(num)) & 0xFFFF) // two's complement before transmit
	}

	return num, nil
}
