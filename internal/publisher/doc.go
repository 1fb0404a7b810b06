// Package publisher implements the Publisher (spec.md §4.6): it turns
// Device Catalog state and configuration changes into Home-Assistant-style
// MQTT discovery and state publications, and translates subscribed command
// messages back into outbound TX Queue entries.
package publisher
