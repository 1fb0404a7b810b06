// Package config handles loading and validating DomBusGateway configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding secrets with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The MQTT password should be set via DOMBUS_MQTT_PASSWORD rather than
//     committed to the YAML file.
//   - The config file should have restricted permissions (0600) since it may
//     carry broker credentials.
//
// Usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
