package inels

import (
	"fmt"
	"maps"
	"strings"
)

// DeviceType is the two-digit protocol variant tag carried in every topic.
type DeviceType string

// Known device types.
const (
	TypeSwitch      DeviceType = "02" // RFSA-6xM, RFSC-61 switching actuators
	TypeBlinds      DeviceType = "03" // RFJA-12B shutter actuator
	TypeDimmer      DeviceType = "05" // RFDAC-71B, RFDEL-71B dimmers
	TypeThermovalve DeviceType = "09" // RFATV-2 thermo head
	TypeThermometer DeviceType = "10" // RFTI-10B temperature sensor
	TypeController  DeviceType = "12" // RFTC-10/G thermostat controller
	TypeKeypad      DeviceType = "19" // RFGB-40, RFKEY-40 wall buttons
)

// ParseDeviceType validates a type tag against the codec registry.
func ParseDeviceType(s string) (DeviceType, error) {
	t := DeviceType(strings.TrimSpace(s))
	if _, ok := codecs[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDeviceType, s)
	}
	return t, nil
}

// Status is a decoded status payload. Keys depend on the device type.
type Status map[string]any

// Clone returns a shallow copy so callers cannot mutate tracked state.
func (s Status) Clone() Status {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Capabilities describes what a device type supports.
type Capabilities struct {
	// HasStatus is true when the type reports decodable status messages.
	HasStatus bool

	// HasSet is true when the type accepts commands on its set topic.
	HasSet bool
}

// MessageHandler is the callback signature for received bus messages.
type MessageHandler = func(topic string, payload []byte) error

// Bus is the message-bus client shared by every device.
// The device never connects, reconfigures or closes it.
// This interface is satisfied by *mqtt.Client.
type Bus interface {
	// Subscribe registers handler for an exact topic. Messages for one topic
	// must be delivered to the handler in publish order.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Unsubscribe stops delivery for a topic.
	Unsubscribe(topic string) error

	// Publish sends payload to topic without waiting for delivery by the device.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by devices and the fleet.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Telemetry receives protocol events (commands, decode failures, link changes).
// This interface is satisfied by *influxdb.Client.
type Telemetry interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// noopTelemetry discards every point.
type noopTelemetry struct{}

func (noopTelemetry) WritePoint(string, map[string]string, map[string]interface{}) {}
