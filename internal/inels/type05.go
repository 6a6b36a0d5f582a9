package inels

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Dimmer (type 05) payload constants.
const (
	dimmerStatusLength = 2

	// Raw brightness is inverted (0xFFFF - value) and offset by 10000;
	// every 1000 raw units is 5%.
	brightnessOffset   = 10000
	brightnessPerFive  = 1000
	brightnessStep     = 10
	maxBrightness      = 100
	brightnessInverter = 0xFFFF

	// rampTimeUnit is the duration of one raw ramp count in seconds.
	rampTimeUnit = 0.065

	// maxRampSeconds is the longest ramp whose raw count fits in 16 bits.
	maxRampSeconds = 4259
)

// Dimmer opcodes.
const (
	opDimmerSetBrightness   byte = 0x01
	opDimmerRampUp          byte = 0x02
	opDimmerWithoutFunction byte = 0x04
	opDimmerSetRampUpTime   byte = 0x05
	opDimmerSetRampDownTime byte = 0x06
	opDimmerTest            byte = 0x07
)

// StatusBrightness is the dimmer status key.
const StatusBrightness = "brightness_percentage"

var dimmerCodec = &Codec{
	Type:         TypeDimmer,
	Name:         "dimmer",
	statusLength: dimmerStatusLength,
	decodeStatus: decodeDimmerStatus,
	commands: map[string]commandSpec{
		CommandSetBrightness: {opcode: opDimmerSetBrightness, encode: func(p map[string]any) ([]byte, error) {
			pct, err := intParam(p, ParamBrightness)
			if err != nil {
				return nil, err
			}
			return EncodeBrightness(pct)
		}},
		CommandRampUp:          {opcode: opDimmerRampUp},
		CommandWithoutFunction: {opcode: opDimmerWithoutFunction},
		CommandSetRampUpTime:   {opcode: opDimmerSetRampUpTime, encode: rampParam},
		CommandSetRampDownTime: {opcode: opDimmerSetRampDownTime, encode: rampParam},
		CommandTest:            {opcode: opDimmerTest},
	},
}

func decodeDimmerStatus(data []byte) (Status, error) {
	return Status{StatusBrightness: DecodeBrightness(binary.BigEndian.Uint16(data))}, nil
}

// DecodeBrightness converts a raw big-endian status value to a percentage.
//
// brightness = ((0xFFFF - raw) - 10000) / 1000 * 5, truncated toward zero.
func DecodeBrightness(raw uint16) int {
	value := float64(brightnessInverter-int(raw)-brightnessOffset) / brightnessPerFive * 5
	return int(value)
}

// EncodeBrightness converts a percentage in {0, 10, ..., 100} to its 2-byte
// big-endian wire form.
func EncodeBrightness(pct int) ([]byte, error) {
	if pct < 0 || pct > maxBrightness || pct%brightnessStep != 0 {
		return nil, fmt.Errorf("%w: brightness must be 0-100 in steps of 10, got %d", ErrInvalidArgument, pct)
	}
	raw := brightnessInverter - (pct/5*brightnessPerFive + brightnessOffset)
	return binary.BigEndian.AppendUint16(nil, uint16(raw)), nil //nolint:gosec // raw is 35535..55535
}

// EncodeRampTime converts a ramp duration in whole seconds to its 2-byte
// big-endian wire form (one count per 65 ms).
func EncodeRampTime(seconds int) ([]byte, error) {
	if seconds < 0 || seconds > maxRampSeconds {
		return nil, fmt.Errorf("%w: ramp time must be 0-%d seconds, got %d", ErrInvalidArgument, maxRampSeconds, seconds)
	}
	raw := int(float64(seconds) / rampTimeUnit)
	return binary.BigEndian.AppendUint16(nil, uint16(raw)), nil //nolint:gosec // bounded by maxRampSeconds
}

func rampParam(p map[string]any) ([]byte, error) {
	seconds, err := intParam(p, ParamSeconds)
	if err != nil {
		return nil, err
	}
	return EncodeRampTime(seconds)
}

// Dimmer is a type 05 dimming actuator.
type Dimmer struct {
	*Device
}

// NewDimmer creates a type 05 device. Call Start to begin tracking it.
func NewDimmer(bus Bus, nodeID, deviceID string, opts Options) (*Dimmer, error) {
	d, err := New(bus, nodeID, deviceID, TypeDimmer, opts)
	if err != nil {
		return nil, err
	}
	return &Dimmer{Device: d}, nil
}

// Brightness returns the last reported brightness percentage.
func (d *Dimmer) Brightness() (int, error) {
	st, err := d.Status()
	if err != nil {
		return 0, err
	}
	pct, _ := st[StatusBrightness].(int)
	return pct, nil
}

// SetBrightness sets the output level. pct must be 0-100 in steps of 10.
func (d *Dimmer) SetBrightness(ctx context.Context, pct int) error {
	return d.Execute(ctx, Command{Name: CommandSetBrightness, Params: map[string]any{ParamBrightness: pct}})
}

// RampUp starts ramping the output up.
func (d *Dimmer) RampUp(ctx context.Context) error {
	return d.Execute(ctx, Command{Name: CommandRampUp})
}

// WithoutFunction sends the no-op function code.
func (d *Dimmer) WithoutFunction(ctx context.Context) error {
	return d.Execute(ctx, Command{Name: CommandWithoutFunction})
}

// SetRampUpTime sets the ramp-up duration in seconds.
func (d *Dimmer) SetRampUpTime(ctx context.Context, seconds int) error {
	return d.Execute(ctx, Command{Name: CommandSetRampUpTime, Params: map[string]any{ParamSeconds: seconds}})
}

// SetRampDownTime sets the ramp-down duration in seconds.
func (d *Dimmer) SetRampDownTime(ctx context.Context, seconds int) error {
	return d.Execute(ctx, Command{Name: CommandSetRampDownTime, Params: map[string]any{ParamSeconds: seconds}})
}

// TestCommunication asks the actuator to acknowledge on the RF link.
func (d *Dimmer) TestCommunication(ctx context.Context) error {
	return d.Execute(ctx, Command{Name: CommandTest})
}
