package inels

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// defaultBufferSize is the per-topic inbox depth between the bus handler and
// a listener goroutine.
const defaultBufferSize = 16

// StatusReader is implemented by devices whose type reports status.
type StatusReader interface {
	Status() (Status, error)
	StatusVersion() uint64
	AwaitStatusVersion(ctx context.Context, after uint64) (uint64, error)
}

// Commander is implemented by devices whose type accepts commands.
type Commander interface {
	Execute(ctx context.Context, cmd Command) error
}

// Options configures a Device.
type Options struct {
	// Name is a human label used in logs. Defaults to the address key.
	Name string

	// QoS is used for subscriptions and command publishes.
	QoS byte

	// Logger receives lifecycle and protocol events. Defaults to a no-op.
	Logger Logger

	// Telemetry receives protocol event counters. Defaults to a no-op.
	Telemetry Telemetry

	// BufferSize is the inbox depth per subscribed topic.
	BufferSize int
}

// Stats holds per-device protocol counters.
type Stats struct {
	StatusUpdates     uint64
	DecodeErrors      uint64
	ConnectionChanges uint64
	CommandsPublished uint64
	CommandsRejected  uint64
}

// add accumulates o into s.
func (s *Stats) add(o Stats) {
	s.StatusUpdates += o.StatusUpdates
	s.DecodeErrors += o.DecodeErrors
	s.ConnectionChanges += o.ConnectionChanges
	s.CommandsPublished += o.CommandsPublished
	s.CommandsRejected += o.CommandsRejected
}

// Device is one addressable actuator or sensor on the RF bus.
//
// A Device does nothing until Start subscribes its listeners. Connection and
// status state are written only by those listeners and may be read from any
// goroutine.
type Device struct {
	name      string
	addr      Address
	topics    Topics
	codec     *Codec
	bus       Bus
	qos       byte
	logger    Logger
	telemetry Telemetry
	bufSize   int

	mu        sync.RWMutex
	connected bool
	status    Status
	version   uint64
	changed   chan struct{} // closed and replaced on every status update
	stats     Stats

	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a device for the given address and type.
//
// Parameters:
//   - bus: shared message-bus client; never closed by the device
//   - nodeID, deviceID: identifiers, normalised to upper case
//   - typ: protocol variant tag with a registered codec
//   - opts: optional settings; zero value is usable
//
// Returns:
//   - *Device: stopped device, call Start to begin tracking
//   - error: wrapping ErrInvalidAddress or ErrUnknownDeviceType
func New(bus Bus, nodeID, deviceID string, typ DeviceType, opts Options) (*Device, error) {
	if bus == nil {
		return nil, errors.New("inels: bus is required")
	}
	addr, err := ParseAddress(nodeID, deviceID, typ)
	if err != nil {
		return nil, err
	}
	codec, err := LookupCodec(typ)
	if err != nil {
		return nil, err
	}

	d := &Device{
		name:      strings.TrimSpace(opts.Name),
		addr:      addr,
		topics:    addr.Topics(),
		codec:     codec,
		bus:       bus,
		qos:       opts.QoS,
		logger:    opts.Logger,
		telemetry: opts.Telemetry,
		bufSize:   opts.BufferSize,
		changed:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	if d.name == "" {
		d.name = addr.Key()
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	if d.telemetry == nil {
		d.telemetry = noopTelemetry{}
	}
	if d.bufSize <= 0 {
		d.bufSize = defaultBufferSize
	}
	close(d.done)

	return d, nil
}

// Name returns the device label.
func (d *Device) Name() string { return d.name }

// Address returns the normalised device address.
func (d *Device) Address() Address { return d.addr }

// Key returns the stable address key, see Address.Key.
func (d *Device) Key() string { return d.addr.Key() }

// Type returns the protocol variant tag.
func (d *Device) Type() DeviceType { return d.addr.Type }

// Topics returns the three topics derived at construction.
func (d *Device) Topics() Topics { return d.topics }

// Codec returns the type codec.
func (d *Device) Codec() *Codec { return d.codec }

// Capabilities reports what the device type supports.
func (d *Device) Capabilities() Capabilities { return d.codec.Capabilities() }

// Start subscribes the connection listener and, for types that report
// status, the status listener. Listeners run until Stop is called or ctx
// is cancelled. A device whose listeners have exited, either way, can be
// started again.
func (d *Device) Start(ctx context.Context) error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	if d.running {
		if !d.listenersExited() {
			return ErrAlreadyStarted
		}
		// The previous run ended with its start context. Drop its stale
		// subscriptions before subscribing again.
		for _, err := range d.unsubscribe() {
			d.logger.Warn("releasing stale subscription", "device", d.name, "error", err)
		}
		d.cancel()
		d.running = false
	}

	lctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	connCh := make(chan []byte, d.bufSize)
	if err := d.bus.Subscribe(d.topics.Connected, d.qos, enqueue(lctx, connCh)); err != nil {
		cancel()
		return fmt.Errorf("subscribing %s: %w", d.topics.Connected, err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.trackConnection(lctx, connCh)
	}()

	if d.codec.Capabilities().HasStatus {
		statusCh := make(chan []byte, d.bufSize)
		if err := d.bus.Subscribe(d.topics.Status, d.qos, enqueue(lctx, statusCh)); err != nil {
			_ = d.bus.Unsubscribe(d.topics.Connected) //nolint:errcheck // best-effort rollback
			cancel()
			wg.Wait()
			return fmt.Errorf("subscribing %s: %w", d.topics.Status, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.trackStatus(lctx, statusCh)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	d.running = true
	d.cancel = cancel
	d.done = done

	d.logger.Debug("device started", "device", d.name, "key", d.addr.Key())
	return nil
}

// Stop unsubscribes the device topics, cancels its listeners and waits for
// them to exit or for ctx to end. After the start context has ended Stop
// still releases the subscriptions.
func (d *Device) Stop(ctx context.Context) error {
	d.lifeMu.Lock()
	if !d.running {
		d.lifeMu.Unlock()
		return ErrNotStarted
	}
	d.running = false

	errs := d.unsubscribe()
	d.cancel()
	done := d.done
	d.lifeMu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for listeners: %w", ctx.Err()))
	}

	d.logger.Debug("device stopped", "device", d.name, "key", d.addr.Key())
	return errors.Join(errs...)
}

// unsubscribe releases the device topics. Callers hold lifeMu.
func (d *Device) unsubscribe() []error {
	var errs []error
	if err := d.bus.Unsubscribe(d.topics.Connected); err != nil {
		errs = append(errs, fmt.Errorf("unsubscribing %s: %w", d.topics.Connected, err))
	}
	if d.codec.Capabilities().HasStatus {
		if err := d.bus.Unsubscribe(d.topics.Status); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing %s: %w", d.topics.Status, err))
		}
	}
	return errs
}

// listenersExited reports whether the listeners of the current run have
// returned. Callers hold lifeMu.
func (d *Device) listenersExited() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the listeners of the most recent Start
// have exited. It is already closed for a device that was never started.
func (d *Device) Done() <-chan struct{} {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()
	return d.done
}

// Running reports whether the listeners are live. It turns false when Stop
// is called and also when the context passed to Start ends.
func (d *Device) Running() bool {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()
	return d.running && !d.listenersExited()
}

// IsConnected reports the last liveness value seen on the connected topic.
func (d *Device) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Stats returns a snapshot of the protocol counters.
func (d *Device) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// ParseConnected interprets a connected-topic payload.
//
// Empty payloads are offline. The textual forms 0/false/off/disconnected and
// 1/true/on/connected are recognised case-insensitively; any other payload is
// online when it contains at least one non-zero byte.
func ParseConnected(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "0", "false", "off", "disconnected":
		return false
	case "1", "true", "on", "connected":
		return true
	}
	return slices.ContainsFunc(payload, func(b byte) bool { return b != 0 })
}

// enqueue returns a bus handler that hands a copy of each payload to a
// listener. It blocks while the inbox is full so per-topic order holds.
func enqueue(ctx context.Context, ch chan<- []byte) MessageHandler {
	return func(_ string, payload []byte) error {
		select {
		case ch <- bytes.Clone(payload):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// trackConnection applies connected-topic messages in arrival order.
func (d *Device) trackConnection(ctx context.Context, inbox <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-inbox:
			d.applyConnected(ParseConnected(payload))
		}
	}
}

func (d *Device) applyConnected(online bool) {
	d.mu.Lock()
	changed := d.connected != online
	d.connected = online
	if changed {
		d.stats.ConnectionChanges++
	}
	d.mu.Unlock()

	if !changed {
		return
	}
	if online {
		d.logger.Info("device connected", "device", d.name, "key", d.addr.Key())
		d.record(eventLinkUp)
	} else {
		d.logger.Warn("device disconnected", "device", d.name, "key", d.addr.Key())
		d.record(eventLinkDown)
	}
}
