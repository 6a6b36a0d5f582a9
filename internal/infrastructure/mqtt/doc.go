// Package mqtt provides the shared broker connection for the iNELS core.
//
// The RF gateway publishes device status and liveness and consumes device
// commands on the broker; every inels.Device talks to it through one
// *Client, which satisfies inels.Bus.
//
// The client handles:
//   - Connection with paho auto-reconnect and subscription restore
//   - Retained online/offline status on <prefix>/system/status, with LWT
//   - Publish/subscribe with QoS validation and bounded waits
//   - Panic recovery in message handlers
//
// Handlers for one client are delivered in arrival order (paho
// OrderMatters), which devices rely on for per-topic ordering.
//
// # Usage
//
//	topics := mqtt.Topics{Prefix: cfg.Bridge.TopicPrefix}
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	dimmer, err := inels.NewDimmer(client, "AA:BB:CC:DD:EE:FF", "001122", inels.Options{})
package mqtt
