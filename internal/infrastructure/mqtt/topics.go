package mqtt

import "strings"

// Device protocol namespace used by the RF gateway itself.
const (
	// DeviceRoot is the fixed root of every device topic.
	DeviceRoot = "inels"

	// bridgeProtocol names the device protocol inside bridge topics.
	bridgeProtocol = "inels"
)

// Topics builds the core's own topics under a configurable prefix.
//
// Device topics (inels/status/...) are fixed by the gateway and built by the
// inels package; everything here is owned by this service:
//
//	topics := mqtt.Topics{Prefix: "inels-core"}
//	topics.BridgeCommand("AA:BB:CC:DD:EE:FF/05/001122")
//	// Returns: "inels-core/command/inels/AA:BB:CC:DD:EE:FF/05/001122"
type Topics struct {
	Prefix string
}

func (t Topics) root() string {
	return strings.Trim(t.Prefix, "/")
}

// SystemStatus returns the retained online/offline topic for this service.
//
// Example: inels-core/system/status
func (t Topics) SystemStatus() string {
	return t.root() + "/system/status"
}

// BridgeCommand returns the JSON command topic for a device key.
//
// Example: inels-core/command/inels/AA:BB:CC:DD:EE:FF/05/001122
func (t Topics) BridgeCommand(key string) string {
	return t.bridge("command", key)
}

// BridgeAck returns the command acknowledgement topic for a device key.
//
// Example: inels-core/ack/inels/AA:BB:CC:DD:EE:FF/05/001122
func (t Topics) BridgeAck(key string) string {
	return t.bridge("ack", key)
}

// BridgeState returns the retained JSON state topic for a device key.
//
// Example: inels-core/state/inels/AA:BB:CC:DD:EE:FF/05/001122
func (t Topics) BridgeState(key string) string {
	return t.bridge("state", key)
}

// AllBridgeCommands returns a pattern matching every device command topic.
//
// Pattern: inels-core/command/inels/#
func (t Topics) AllBridgeCommands() string {
	return t.bridge("command", "#")
}

// BridgeCommandKey extracts the device key from a command topic.
// Device keys contain slashes, so everything after the protocol segment is
// the key.
func (t Topics) BridgeCommandKey(topic string) (string, bool) {
	key, ok := strings.CutPrefix(topic, t.bridge("command", ""))
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (t Topics) bridge(category, key string) string {
	return t.root() + "/" + category + "/" + bridgeProtocol + "/" + key
}
