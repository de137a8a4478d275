// Package mqtt provides MQTT client connectivity for Zone Climate Core.
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
// Zone Climate uses MQTT as the boundary to the host platform: temperature
// readings flow in on sensor topics, actuation commands flow out on command
// topics, and per-room status is published retained for any consumer.
//
//	Host platform ↔ MQTT Broker ↔ Zone Climate Core
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all sensor readings
//	err = client.Subscribe(mqtt.Topics{}.AllSensorReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        // update last-known value store
//	        return nil
//	    })
//
//	// Publish a device command
//	topic := mqtt.Topics{}.DeviceCommand("radiator-living")
//	client.Publish(topic, []byte(`{"state":"on"}`), 1, false)
package mqtt
