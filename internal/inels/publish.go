package inels

import (
	"context"
	"fmt"
)

// Telemetry measurement and event tags for protocol counters.
const (
	measurementProtocol = "inels_protocol"

	eventCommandPublished = "command_published"
	eventCommandRejected  = "command_rejected"
	eventDecodeError      = "decode_error"
	eventLinkUp           = "link_up"
	eventLinkDown         = "link_down"
)

// Execute encodes cmd with the device codec and publishes it.
//
// Returns an error wrapping ErrCommandNotSupported for commands the type
// does not accept, ErrInvalidArgument for out-of-range parameters and
// ErrDeviceDisconnected while the device is offline. Nothing is published
// in any of those cases.
func (d *Device) Execute(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := d.codec.Encode(cmd)
	if err != nil {
		d.reject(cmd.Name, err)
		return err
	}
	if err := d.publish(payload); err != nil {
		d.reject(cmd.Name, err)
		return err
	}

	d.logger.Debug("command published",
		"device", d.name,
		"key", d.addr.Key(),
		"command", cmd.Name,
		"payload", fmt.Sprintf("% X", payload),
	)
	return nil
}

// publish sends payload to the set topic if the device is online.
// It never calls the bus while disconnected.
func (d *Device) publish(payload []byte) error {
	if !d.IsConnected() {
		return fmt.Errorf("%w: %s", ErrDeviceDisconnected, d.addr.Key())
	}

	if err := d.bus.Publish(d.topics.Set, payload, d.qos, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", d.topics.Set, err)
	}

	d.mu.Lock()
	d.stats.CommandsPublished++
	d.mu.Unlock()
	d.record(eventCommandPublished)
	return nil
}

func (d *Device) reject(command string, err error) {
	d.mu.Lock()
	d.stats.CommandsRejected++
	d.mu.Unlock()

	d.logger.Warn("command rejected",
		"device", d.name,
		"key", d.addr.Key(),
		"command", command,
		"error", err,
	)
	d.record(eventCommandRejected)
}

// record writes one protocol event counter. Status values are never recorded.
func (d *Device) record(event string) {
	d.telemetry.WritePoint(measurementProtocol,
		map[string]string{
			"device": d.name,
			"key":    d.addr.Key(),
			"type":   string(d.addr.Type),
			"event":  event,
		},
		map[string]interface{}{"count": 1},
	)
}
