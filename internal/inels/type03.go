package inels

import "context"

// Blinds opcodes. The type 03 status layout is unknown, so status is not
// subscribed.
const (
	opBlindsUp   byte = 0x01
	opBlindsDown byte = 0x02
	opBlindsStop byte = 0x03
	opBlindsTest byte = 0x07
)

var blindsCodec = &Codec{
	Type: TypeBlinds,
	Name: "shutter actuator",
	commands: map[string]commandSpec{
		CommandUp:   {opcode: opBlindsUp},
		CommandDown: {opcode: opBlindsDown},
		CommandStop: {opcode: opBlindsStop},
		CommandTest: {opcode: opBlindsTest},
	},
}

// Blinds is a type 03 shutter actuator.
type Blinds struct {
	*Device
}

// NewBlinds creates a type 03 device. Call Start to begin tracking it.
func NewBlinds(bus Bus, nodeID, deviceID string, opts Options) (*Blinds, error) {
	d, err := New(bus, nodeID, deviceID, TypeBlinds, opts)
	if err != nil {
		return nil, err
	}
	return &Blinds{Device: d}, nil
}

// BlindsUp drives the shutter up.
func (b *Blinds) BlindsUp(ctx context.Context) error {
	return b.Execute(ctx, Command{Name: CommandUp})
}

// BlindsDown drives the shutter down.
func (b *Blinds) BlindsDown(ctx context.Context) error {
	return b.Execute(ctx, Command{Name: CommandDown})
}

// BlindsStop halts the shutter motor. Device.Stop is unrelated and ends tracking.
func (b *Blinds) BlindsStop(ctx context.Context) error {
	return b.Execute(ctx, Command{Name: CommandStop})
}

// TestCommunication asks the actuator to acknowledge on the RF link.
func (b *Blinds) TestCommunication(ctx context.Context) error {
	return b.Execute(ctx, Command{Name: CommandTest})
}
