package inels

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestSwitch_OnScenario(t *testing.T) {
	d, bus := newStartedDevice(t, TypeSwitch, Options{QoS: 1})
	sw := &Switch{Device: d}

	setConnected(t, d, bus, true)
	if err := sw.SwitchOn(context.Background()); err != nil {
		t.Fatalf("SwitchOn() error = %v", err)
	}

	msgs := bus.getPublished()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "inels/set/AA:BB:CC:DD:EE:FF/02/001122" {
		t.Errorf("topic = %q", msgs[0].topic)
	}
	if !bytes.Equal(msgs[0].payload, []byte{0x01}) {
		t.Errorf("payload = % X, want 01", msgs[0].payload)
	}
	if msgs[0].qos != 1 || msgs[0].retained {
		t.Errorf("qos = %d retained = %v, want 1 false", msgs[0].qos, msgs[0].retained)
	}
}

func TestPublish_DisconnectedNeverPublishes(t *testing.T) {
	tel := &mockTelemetry{}
	d, bus := newStartedDevice(t, TypeSwitch, Options{Telemetry: tel})
	sw := &Switch{Device: d}
	ctx := context.Background()

	commands := []func(context.Context) error{
		sw.SwitchOn, sw.SwitchOff, sw.Impulse, sw.TestCommunication,
	}
	for i, cmd := range commands {
		if err := cmd(ctx); !errors.Is(err, ErrDeviceDisconnected) {
			t.Errorf("command %d error = %v, want ErrDeviceDisconnected", i, err)
		}
	}

	// Connected then dropped again.
	setConnected(t, d, bus, true)
	setConnected(t, d, bus, false)
	if err := sw.SwitchOn(ctx); !errors.Is(err, ErrDeviceDisconnected) {
		t.Errorf("SwitchOn() after disconnect error = %v, want ErrDeviceDisconnected", err)
	}

	if n := len(bus.getPublished()); n != 0 {
		t.Errorf("published %d messages while disconnected, want 0", n)
	}
	if got := d.Stats().CommandsRejected; got != 5 {
		t.Errorf("CommandsRejected = %d, want 5", got)
	}
	if tel.count(eventCommandRejected) != 5 {
		t.Errorf("command_rejected events = %d, want 5", tel.count(eventCommandRejected))
	}
}

func TestPublish_InvalidArgumentNeverPublishes(t *testing.T) {
	d, bus := newStartedDevice(t, TypeDimmer, Options{})
	dim := &Dimmer{Device: d}
	setConnected(t, d, bus, true)
	ctx := context.Background()

	for _, pct := range []int{-10, 5, 55, 110} {
		if err := dim.SetBrightness(ctx, pct); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetBrightness(%d) error = %v, want ErrInvalidArgument", pct, err)
		}
	}
	if err := dim.SetRampDownTime(ctx, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetRampDownTime(-1) error = %v, want ErrInvalidArgument", err)
	}
	if err := dim.SetRampUpTime(ctx, maxRampSeconds+1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetRampUpTime(max+1) error = %v, want ErrInvalidArgument", err)
	}

	if n := len(bus.getPublished()); n != 0 {
		t.Errorf("published %d messages for invalid arguments, want 0", n)
	}
}

func TestDimmer_Commands(t *testing.T) {
	tel := &mockTelemetry{}
	d, bus := newStartedDevice(t, TypeDimmer, Options{Telemetry: tel})
	dim := &Dimmer{Device: d}
	setConnected(t, d, bus, true)
	ctx := context.Background()

	steps := []struct {
		name string
		call func() error
		want []byte
	}{
		{"SetBrightness", func() error { return dim.SetBrightness(ctx, 30) }, []byte{0x01, 0xC1, 0x7F}},
		{"RampUp", func() error { return dim.RampUp(ctx) }, []byte{0x02}},
		{"WithoutFunction", func() error { return dim.WithoutFunction(ctx) }, []byte{0x04}},
		{"SetRampUpTime", func() error { return dim.SetRampUpTime(ctx, 10) }, []byte{0x05, 0x00, 0x99}},
		{"SetRampDownTime", func() error { return dim.SetRampDownTime(ctx, 0) }, []byte{0x06, 0x00, 0x00}},
		{"TestCommunication", func() error { return dim.TestCommunication(ctx) }, []byte{0x07}},
	}

	for _, s := range steps {
		if err := s.call(); err != nil {
			t.Fatalf("%s() error = %v", s.name, err)
		}
	}

	msgs := bus.getPublished()
	if len(msgs) != len(steps) {
		t.Fatalf("published %d messages, want %d", len(msgs), len(steps))
	}
	for i, s := range steps {
		if msgs[i].topic != d.Topics().Set {
			t.Errorf("%s topic = %q, want %q", s.name, msgs[i].topic, d.Topics().Set)
		}
		if !bytes.Equal(msgs[i].payload, s.want) {
			t.Errorf("%s payload = % X, want % X", s.name, msgs[i].payload, s.want)
		}
	}
	if got := d.Stats().CommandsPublished; got != uint64(len(steps)) {
		t.Errorf("CommandsPublished = %d, want %d", got, len(steps))
	}
	if tel.count(eventCommandPublished) != len(steps) {
		t.Errorf("command_published events = %d, want %d", tel.count(eventCommandPublished), len(steps))
	}
}

func TestBlinds_Commands(t *testing.T) {
	d, bus := newStartedDevice(t, TypeBlinds, Options{})
	bl := &Blinds{Device: d}
	setConnected(t, d, bus, true)
	ctx := context.Background()

	for _, call := range []func(context.Context) error{bl.BlindsUp, bl.BlindsDown, bl.BlindsStop, bl.TestCommunication} {
		if err := call(ctx); err != nil {
			t.Fatalf("command error = %v", err)
		}
	}

	msgs := bus.getPublished()
	want := [][]byte{{0x01}, {0x02}, {0x03}, {0x07}}
	if len(msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(msgs), len(want))
	}
	for i := range want {
		if !bytes.Equal(msgs[i].payload, want[i]) {
			t.Errorf("message %d payload = % X, want % X", i, msgs[i].payload, want[i])
		}
	}
}

func TestExecute_UnsupportedCommand(t *testing.T) {
	d, bus := newStartedDevice(t, TypeThermometer, Options{})
	setConnected(t, d, bus, true)

	err := d.Execute(context.Background(), Command{Name: CommandOn})
	if !errors.Is(err, ErrCommandNotSupported) {
		t.Errorf("Execute() error = %v, want ErrCommandNotSupported", err)
	}
	if n := len(bus.getPublished()); n != 0 {
		t.Errorf("published %d messages, want 0", n)
	}
}

func TestExecute_BusError(t *testing.T) {
	d, bus := newStartedDevice(t, TypeSwitch, Options{})
	setConnected(t, d, bus, true)
	bus.publishErr = errors.New("not connected to broker")

	if err := d.Execute(context.Background(), Command{Name: CommandOff}); err == nil {
		t.Error("Execute() error = nil, want bus failure")
	}
	if got := d.Stats().CommandsRejected; got != 1 {
		t.Errorf("CommandsRejected = %d, want 1", got)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	d, bus := newStartedDevice(t, TypeSwitch, Options{})
	setConnected(t, d, bus, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Execute(ctx, Command{Name: CommandOn}); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if n := len(bus.getPublished()); n != 0 {
		t.Errorf("published %d messages, want 0", n)
	}
}

func TestTypedConstructors(t *testing.T) {
	bus := newMockBus()
	const node, dev = "AA:BB:CC:DD:EE:FF", "001122"

	if s, err := NewSwitch(bus, node, dev, Options{}); err != nil || s.Type() != TypeSwitch {
		t.Errorf("NewSwitch() = %v, %v", s, err)
	}
	if b, err := NewBlinds(bus, node, dev, Options{}); err != nil || b.Type() != TypeBlinds {
		t.Errorf("NewBlinds() = %v, %v", b, err)
	}
	if d, err := NewDimmer(bus, node, dev, Options{}); err != nil || d.Type() != TypeDimmer {
		t.Errorf("NewDimmer() = %v, %v", d, err)
	}
	if _, err := NewDimmer(bus, "bad", dev, Options{}); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("NewDimmer() bad node error = %v, want ErrInvalidAddress", err)
	}
}

func TestSwitch_IsOn(t *testing.T) {
	d, bus := newStartedDevice(t, TypeSwitch, Options{})
	sw := &Switch{Device: d}

	deliverStatus(t, d, bus, []byte{0x01, 0x01})
	if on, err := sw.IsOn(); err != nil || !on {
		t.Errorf("IsOn() = %v, %v; want true, nil", on, err)
	}
}
