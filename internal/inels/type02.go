package inels

import "context"

// Switching actuator (type 02) layout: status is [unit id, switched-on flag].
const switchStatusLength = 2

// Switch opcodes.
const (
	opSwitchOn      byte = 0x01
	opSwitchOff     byte = 0x02
	opSwitchImpulse byte = 0x03
	opSwitchTest    byte = 0x07
)

// Switch status keys.
const (
	StatusUnitID     = "unit_id"
	StatusSwitchedOn = "switched_on"
)

var switchCodec = &Codec{
	Type:         TypeSwitch,
	Name:         "switching actuator",
	statusLength: switchStatusLength,
	decodeStatus: func(data []byte) (Status, error) {
		return Status{
			StatusUnitID:     int(data[0]),
			StatusSwitchedOn: data[1] != 0,
		}, nil
	},
	commands: map[string]commandSpec{
		CommandOn:      {opcode: opSwitchOn},
		CommandOff:     {opcode: opSwitchOff},
		CommandImpulse: {opcode: opSwitchImpulse},
		CommandTest:    {opcode: opSwitchTest},
	},
}

// Switch is a type 02 on/off actuator.
type Switch struct {
	*Device
}

// NewSwitch creates a type 02 device. Call Start to begin tracking it.
func NewSwitch(bus Bus, nodeID, deviceID string, opts Options) (*Switch, error) {
	d, err := New(bus, nodeID, deviceID, TypeSwitch, opts)
	if err != nil {
		return nil, err
	}
	return &Switch{Device: d}, nil
}

// IsOn returns the last reported relay state.
func (s *Switch) IsOn() (bool, error) {
	st, err := s.Status()
	if err != nil {
		return false, err
	}
	on, _ := st[StatusSwitchedOn].(bool)
	return on, nil
}

// SwitchOn closes the relay.
func (s *Switch) SwitchOn(ctx context.Context) error {
	return s.Execute(ctx, Command{Name: CommandOn})
}

// SwitchOff opens the relay.
func (s *Switch) SwitchOff(ctx context.Context) error {
	return s.Execute(ctx, Command{Name: CommandOff})
}

// Impulse pulses the relay.
func (s *Switch) Impulse(ctx context.Context) error {
	return s.Execute(ctx, Command{Name: CommandImpulse})
}

// TestCommunication asks the actuator to acknowledge on the RF link.
func (s *Switch) TestCommunication(ctx context.Context) error {
	return s.Execute(ctx, Command{Name: CommandTest})
}
