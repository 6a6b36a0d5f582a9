package bridge

import (
	"time"

	"github.com/nerrad567/inels-core/internal/inels"
)

// CommandMessage is a JSON command for one device.
// Topic: {prefix}/command/inels/{device-key}
type CommandMessage struct {
	// ID correlates the command with its acknowledgement. Assigned by the
	// bridge when the sender leaves it empty.
	ID string `json:"id"`

	// Command is a device command name (e.g. "on", "set_brightness").
	Command string `json:"command"`

	// Parameters carries command-specific values.
	// Examples:
	//   {"brightness": 40} for set_brightness
	//   {"seconds": 10} for set_ramp_up_time
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a bridged command.
type AckStatus string

const (
	// AckAccepted means the command was published to the device set topic.
	AckAccepted AckStatus = "accepted"

	// AckFailed means the command was not published.
	AckFailed AckStatus = "failed"

	// AckTimeout means the command did not complete within the command timeout.
	AckTimeout AckStatus = "timeout"
)

// AckMessage acknowledges a command.
// Topic: {prefix}/ack/inels/{device-key}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device,omitempty"`
	Key       string    `json:"key"`
	Command   string    `json:"command,omitempty"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes why a command failed.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in failed acknowledgements.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeInvalidPayload    = "INVALID_PAYLOAD"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
)

// StateMessage carries the decoded status of a device.
// Topic: {prefix}/state/inels/{device-key}
// QoS: configured, Retained: Yes
type StateMessage struct {
	Device    string           `json:"device"`
	Key       string           `json:"key"`
	Type      inels.DeviceType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`

	// Version is the device status version this snapshot belongs to.
	Version   uint64       `json:"version"`
	Connected bool         `json:"connected"`
	State     inels.Status `json:"state"`
}

// NewAckMessage creates a successful acknowledgement.
func NewAckMessage(cmd CommandMessage, device, key string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Device:    device,
		Key:       key,
		Command:   cmd.Command,
		Status:    AckAccepted,
	}
}

// NewAckError creates a failed acknowledgement. ErrCodeTimeout maps to
// AckTimeout, every other code to AckFailed.
func NewAckError(cmd CommandMessage, device, key, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Device:    device,
		Key:       key,
		Command:   cmd.Command,
		Status:    status,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// NewStateMessage snapshots d at the given status version.
func NewStateMessage(d *inels.Device, version uint64, state inels.Status) StateMessage {
	return StateMessage{
		Device:    d.Name(),
		Key:       d.Key(),
		Type:      d.Type(),
		Timestamp: time.Now().UTC(),
		Version:   version,
		Connected: d.IsConnected(),
		State:     state,
	}
}
