package publisher

import (
	"strings"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
)

// parseCommandTopic extracts the device ID segment from a command topic of
// the shape "<base>/<platform>/<id>/set" (spec.md §4.6).
func parseCommandTopic(topic string) (catalog.DeviceID, bool) {
	if strings.HasSuffix(topic, "/state") {
		return 0, false
	}
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[3] != "set" {
		return 0, false
	}
	id, err := catalog.ParseDeviceIDName(parts[2])
	if err != nil {
		return 0, false
	}
	return id, true
}
