// Package mqtt provides MQTT client connectivity for PulseGrid Core.
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
// PulseGrid uses MQTT as the message bus connecting the Core to the
// timing controllers that drive digital lines and analog channels on
// the rig. The broker decouples Core from controller firmware details.
//
//	PulseGrid Core ↔ MQTT Broker ↔ Timing Controllers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
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
//	// Subscribe to completion notifications from all controllers
//	err = client.Subscribe(mqtt.Topics{}.AllControllerNotifications(), 1,
//	    func(topic string, payload []byte) {
//	        log.Printf("Received: %s = %s", topic, payload)
//	    })
package mqtt
