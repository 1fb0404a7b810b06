package publisher

import (
	"fmt"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/mqtt"
	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// senderTag marks every outgoing JSON-object payload so the command
// subscriber can recognise and drop its own echo (spec.md §4.6 "Loopback
// suppression").
const senderTag = "dbp"

// gatewaySoftware identifies this gateway in the discovery origin record.
// No pack repo ships a build-version stamp for an RS485 bridge; kept as a
// literal since spec.md names no versioning scheme for this field.
const gatewaySoftware = "DomBusGateway"

// hasCommandTopic reports whether platform accepts commands from Home
// Assistant (spec.md §6 "command_topic"); sensors are read-only.
func hasCommandTopic(platform catalog.Platform) bool {
	switch platform {
	case catalog.PlatformSensor, catalog.PlatformBinarySensor:
		return false
	default:
		return true
	}
}

// buildDiscoveryConfig renders the discovery config JSON body for d
// (spec.md §6 "Discovery config"). An empty map means the entity should be
// retired (rmmodule / refresh reset publish an empty payload instead).
func buildDiscoveryConfig(topics mqtt.Topics, frameAddr module.FrameAddr, mod module.Module, d *catalog.Device) map[string]any {
	id := d.ID.Name()
	platform := catalog.PlatformFor(d)

	cfg := map[string]any{
		"name":       d.PortName,
		"unique_id":  "dombus_" + id,
		"state_topic": topics.State(string(platform), id),
		"schema":     "json",
		"_sender":    senderTag,
		"o": map[string]any{
			"name": gatewaySoftware,
			"sw":   mod.FirmwareVersion,
			"url":  "https://github.com/CreasolTech/DomBusGateway",
		},
		"device": map[string]any{
			"identifiers": []string{fmt.Sprintf("dombus_%06x", uint32(frameAddr))},
			"name":        fmt.Sprintf("DomBus module %06x", uint32(frameAddr)),
			"mf":          "Creasol",
			"mdl":         mod.ModuleType,
			"sw":          mod.FirmwareVersion,
		},
	}

	if hasCommandTopic(platform) {
		cfg["command_topic"] = topics.Command(string(platform), id)
	}

	mergeHAOpts(cfg, d.HA)
	return cfg
}

// mergeHAOpts merges the device's controller-side discovery hints into the
// config payload (spec.md §6 "Additional keys merged from haOpts").
func mergeHAOpts(cfg map[string]any, ha catalog.HAOpts) {
	if ha.DeviceClass != "" {
		cfg["device_class"] = ha.DeviceClass
	}
	if ha.Unit != "" {
		cfg["unit_of_measurement"] = ha.Unit
	}
	if ha.Icon != "" {
		cfg["icon"] = ha.Icon
	}
	if ha.Platform == catalog.PlatformNumber {
		cfg["min"] = ha.Min
		cfg["max"] = ha.Max
		cfg["step"] = ha.Step
	}
	if len(ha.Options) > 0 {
		cfg["options"] = ha.Options
	}
}
