package inels

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Command names accepted by Device.Execute. Which ones apply depends on the
// device type; see Codec.Commands.
const (
	CommandOn              = "on"
	CommandOff             = "off"
	CommandImpulse         = "impulse"
	CommandUp              = "up"
	CommandDown            = "down"
	CommandStop            = "stop"
	CommandRampUp          = "ramp_up"
	CommandWithoutFunction = "without_function"
	CommandSetBrightness   = "set_brightness"
	CommandSetRampUpTime   = "set_ramp_up_time"
	CommandSetRampDownTime = "set_ramp_down_time"
	CommandTest            = "test"
)

// Command parameter keys.
const (
	ParamBrightness = "brightness"
	ParamSeconds    = "seconds"
)

// Command is a named device command with optional parameters.
type Command struct {
	Name   string
	Params map[string]any
}

// commandSpec maps a command to its opcode and parameter encoder.
// A nil encode means the command is the bare opcode.
type commandSpec struct {
	opcode byte
	encode func(params map[string]any) ([]byte, error)
}

// Codec is the stateless byte layout of one device type.
type Codec struct {
	Type DeviceType
	Name string

	// statusLength is the exact status payload size; only meaningful with decodeStatus.
	statusLength int
	decodeStatus func(data []byte) (Status, error)
	commands     map[string]commandSpec
}

// codecs is the registry of every known device type.
var codecs = map[DeviceType]*Codec{
	TypeSwitch:      switchCodec,
	TypeBlinds:      blindsCodec,
	TypeDimmer:      dimmerCodec,
	TypeThermovalve: {Type: TypeThermovalve, Name: "thermovalve"},
	TypeThermometer: {Type: TypeThermometer, Name: "temperature sensor"},
	TypeController:  {Type: TypeController, Name: "thermostat controller"},
	TypeKeypad:      {Type: TypeKeypad, Name: "wall keypad"},
}

// LookupCodec returns the codec registered for t.
func LookupCodec(t DeviceType) (*Codec, error) {
	c, ok := codecs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, string(t))
	}
	return c, nil
}

// Capabilities reports whether the type decodes status and accepts commands.
func (c *Codec) Capabilities() Capabilities {
	return Capabilities{
		HasStatus: c.decodeStatus != nil,
		HasSet:    len(c.commands) > 0,
	}
}

// Commands returns the sorted command names the type accepts.
func (c *Codec) Commands() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DecodeStatus decodes a raw status payload.
//
// The payload must be exactly the length the type emits; anything else
// returns an error wrapping ErrDecode.
func (c *Codec) DecodeStatus(data []byte) (Status, error) {
	if c.decodeStatus == nil {
		return nil, fmt.Errorf("%w: type %s", ErrStatusNotSupported, c.Type)
	}
	if len(data) != c.statusLength {
		return nil, fmt.Errorf("%w: type %s status requires %d bytes, got %d", ErrDecode, c.Type, c.statusLength, len(data))
	}
	return c.decodeStatus(data)
}

// Encode builds the set payload for cmd: the opcode byte followed by any
// encoded parameters.
func (c *Codec) Encode(cmd Command) ([]byte, error) {
	spec, ok := c.commands[cmd.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q for type %s", ErrCommandNotSupported, cmd.Name, c.Type)
	}
	payload := []byte{spec.opcode}
	if spec.encode == nil {
		return payload, nil
	}
	params, err := spec.encode(cmd.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return append(payload, params...), nil
}

// intParam extracts an integral parameter. JSON numbers arrive as float64
// and must have no fractional part.
func intParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q parameter", ErrInvalidArgument, key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %q out of range: %d", ErrInvalidArgument, key, n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %q must be an integer, got %v", ErrInvalidArgument, key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q must be an integer, got %s", ErrInvalidArgument, key, n)
		}
		return intParam(map[string]any{key: i}, key)
	default:
		return 0, fmt.Errorf("%w: %q must be a number, got %T", ErrInvalidArgument, key, v)
	}
}
