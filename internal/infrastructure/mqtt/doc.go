// Package mqtt provides MQTT client connectivity for DomBusGateway.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The gateway uses MQTT to publish Home-Assistant-style discovery and state
// topics and to receive commands back from Home Assistant (spec.md §4.6).
//
//	DomBus RS485 bus ↔ DomBusGateway ↔ MQTT Broker ↔ Home Assistant
//
// # Security Considerations
//
//   - TLS is supported via cfg.Broker.TLS=true
//   - Credentials come from config with environment overrides for secrets
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topic, cfg.MQTT.TopicConfig)
//	err = client.Subscribe(topics.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish(topics.Config("switch", "1_12_2"), configJSON, 1, true)
package mqtt
