package mqtt

import "fmt"

// Topics builds the Home-Assistant-style MQTT topic names used by the
// publisher (spec.md §4.6). Two bases are involved: the state/command base
// (cfg.MQTT.Topic, e.g. "dombus") and the discovery config base
// (cfg.MQTT.TopicConfig, e.g. "homeassistant").
//
//	topics := mqtt.NewTopics("dombus", "homeassistant")
//	topics.State("sensor", "1_12_1")    // dombus/sensor/1_12_1
//	topics.Command("switch", "1_12_2")  // dombus/switch/1_12_2/set
//	topics.Config("sensor", "1_12_1")   // homeassistant/sensor/1_12_1/config
type Topics struct {
	base       string
	configBase string
}

// NewTopics constructs a Topics builder from the configured bases.
func NewTopics(base, configBase string) Topics {
	return Topics{base: base, configBase: configBase}
}

// State returns the state topic a device publishes its current value to.
func (t Topics) State(platform, id string) string {
	return fmt.Sprintf("%s/%s/%s", t.base, platform, id)
}

// Command returns the topic Home Assistant publishes commands to.
func (t Topics) Command(platform, id string) string {
	return fmt.Sprintf("%s/%s/%s/set", t.base, platform, id)
}

// Config returns the discovery config topic for a device entity.
func (t Topics) Config(platform, id string) string {
	return fmt.Sprintf("%s/%s/%s/config", t.configBase, platform, id)
}

// AllCommands returns a wildcard pattern matching every command topic, used
// to subscribe once for every published entity.
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/+/+/set", t.base)
}

// Status returns the gateway-wide availability topic (LWT / online-offline).
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.base)
}
