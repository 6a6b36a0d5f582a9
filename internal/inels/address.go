package inels

import (
	"fmt"
	"regexp"
	"strings"
)

// TopicRoot is the namespace every iNELS RF topic lives under.
const TopicRoot = "inels"

// Topic kinds, the second level of every device topic.
const (
	KindStatus    = "status"
	KindSet       = "set"
	KindConnected = "connected"
)

// Identifier patterns, matched after upper-casing.
var (
	nodeIDPattern   = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)
	deviceIDPattern = regexp.MustCompile(`^[0-9A-F]{6}$`)
)

// Address identifies one device on the bus: the gateway node it hangs off,
// its own identifier and its protocol variant.
type Address struct {
	NodeID   string
	DeviceID string
	Type     DeviceType
}

// Topics holds the three topic names derived from an Address.
type Topics struct {
	Status    string
	Set       string
	Connected string
}

// ParseAddress normalises and validates a node/device identifier pair.
//
// Node identifiers are six colon-separated hex octets ("AA:BB:CC:DD:EE:FF"),
// device identifiers six hex digits ("00A1B2"). Both are upper-cased.
//
// Returns an error wrapping ErrInvalidAddress that names the offending field
// and the expected pattern.
func ParseAddress(nodeID, deviceID string, t DeviceType) (Address, error) {
	node := strings.ToUpper(strings.TrimSpace(nodeID))
	if !nodeIDPattern.MatchString(node) {
		return Address{}, fmt.Errorf("%w: node id %q must be six colon-separated hex octets (XX:XX:XX:XX:XX:XX)", ErrInvalidAddress, nodeID)
	}

	dev := strings.ToUpper(strings.TrimSpace(deviceID))
	if !deviceIDPattern.MatchString(dev) {
		return Address{}, fmt.Errorf("%w: device id %q must be exactly six hex digits (XXXXXX)", ErrInvalidAddress, deviceID)
	}

	if _, ok := codecs[t]; !ok {
		return Address{}, fmt.Errorf("%w: %q", ErrUnknownDeviceType, string(t))
	}

	return Address{NodeID: node, DeviceID: dev, Type: t}, nil
}

// Topic builds the topic of the given kind for this address.
//
// Example: inels/status/AA:BB:CC:DD:EE:FF/05/001122
func (a Address) Topic(kind string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", TopicRoot, kind, a.NodeID, a.Type, a.DeviceID)
}

// Topics returns the status, set and connected topic names.
func (a Address) Topics() Topics {
	return Topics{
		Status:    a.Topic(KindStatus),
		Set:       a.Topic(KindSet),
		Connected: a.Topic(KindConnected),
	}
}

// Key returns a stable identifier of the form NODE/TYPE/DEVICE.
// It is also the last topic levels of every device topic.
func (a Address) Key() string {
	return fmt.Sprintf("%s/%s/%s", a.NodeID, a.Type, a.DeviceID)
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Key()
}

// ParseTopic splits a device topic back into its kind and Address.
func ParseTopic(topic string) (kind string, addr Address, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicRoot {
		return "", Address{}, fmt.Errorf("%w: topic %q is not %s/<kind>/<node>/<type>/<device>", ErrInvalidAddress, topic, TopicRoot)
	}
	switch parts[1] {
	case KindStatus, KindSet, KindConnected:
	default:
		return "", Address{}, fmt.Errorf("%w: unknown topic kind %q", ErrInvalidAddress, parts[1])
	}
	addr, err = ParseAddress(parts[2], parts[4], DeviceType(parts[3]))
	if err != nil {
		return "", Address{}, err
	}
	return parts[1], addr, nil
}
