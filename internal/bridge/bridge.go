package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/inels-core/internal/inels"
	"github.com/nerrad567/inels-core/internal/infrastructure/mqtt"
)

const (
	// defaultCommandTimeout bounds one command when Options leaves it zero.
	defaultCommandTimeout = 5 * time.Second

	// defaultQueueSize is the number of commands buffered ahead of the worker.
	defaultQueueSize = 64
)

// Logger is the logging interface used by the bridge.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Bridge.
type Options struct {
	// Bus carries commands, acks and state. *mqtt.Client satisfies it.
	Bus inels.Bus

	// Fleet holds the devices commands are routed to.
	Fleet *inels.Fleet

	// Topics roots the bridge topics.
	Topics mqtt.Topics

	// QoS for subscriptions, acks and state.
	QoS byte

	// CommandTimeout bounds a single command. Zero means 5 seconds.
	CommandTimeout time.Duration

	// QueueSize is the command buffer length. Zero means 64.
	QueueSize int

	// Logger is optional.
	Logger Logger
}

// Stats are the bridge counters.
type Stats struct {
	CommandsReceived uint64
	CommandsAccepted uint64
	CommandsFailed   uint64
	CommandsDropped  uint64
	StatesPublished  uint64
}

// Bridge exposes a fleet of iNELS devices as JSON over MQTT.
//
// It handles:
//   - Receiving JSON commands and executing them on the addressed device
//   - Acknowledging every command that names a device
//   - Publishing each decoded status as retained JSON state
//
// Commands run one at a time on a worker goroutine, in arrival order.
// The MQTT handler only queues them, so it never waits on a publish.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bus            inels.Bus
	fleet          *inels.Fleet
	topics         mqtt.Topics
	qos            byte
	commandTimeout time.Duration
	queueSize      int
	logger         Logger

	received  atomic.Uint64
	accepted  atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	published atomic.Uint64

	lifeMu  sync.Mutex
	running bool
	queue   chan queuedCommand
	cancel  context.CancelFunc
	done    chan struct{}
}

type queuedCommand struct {
	key     string
	payload []byte
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if opts.Fleet == nil {
		return nil, fmt.Errorf("fleet is required")
	}
	if opts.Topics.Prefix == "" {
		return nil, fmt.Errorf("topic prefix is required")
	}

	b := &Bridge{
		bus:            opts.Bus,
		fleet:          opts.Fleet,
		topics:         opts.Topics,
		qos:            opts.QoS,
		commandTimeout: opts.CommandTimeout,
		queueSize:      opts.QueueSize,
		logger:         opts.Logger,
	}
	if b.commandTimeout <= 0 {
		b.commandTimeout = defaultCommandTimeout
	}
	if b.queueSize <= 0 {
		b.queueSize = defaultQueueSize
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	return b, nil
}

// Start subscribes to the command topics and begins publishing state for
// every device that reports status.
func (b *Bridge) Start(ctx context.Context) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.running {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	queue := make(chan queuedCommand, b.queueSize)

	topic := b.topics.AllBridgeCommands()
	if err := b.bus.Subscribe(topic, b.qos, b.handleCommandMessage(queue)); err != nil {
		cancel()
		return fmt.Errorf("subscribe to commands: %w", err)
	}

	// Each run gets its own WaitGroup so a Start after a timed-out Stop
	// never adds to a group that an earlier Stop may still be waiting on.
	var wg sync.WaitGroup
	done := make(chan struct{})

	b.queue = queue
	b.cancel = cancel
	b.done = done
	b.running = true

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.runCommands(runCtx, queue)
	}()

	watched := 0
	for _, d := range b.fleet.List() {
		if !d.Capabilities().HasStatus {
			continue
		}
		watched++
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.watchState(runCtx, d)
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	b.logger.Info("bridge started",
		"command_topic", topic,
		"devices", b.fleet.Len(),
		"state_publishers", watched)
	return nil
}

// Stop unsubscribes, cancels in-flight work and waits for the bridge
// goroutines to exit or ctx to end.
func (b *Bridge) Stop(ctx context.Context) error {
	b.lifeMu.Lock()
	if !b.running {
		b.lifeMu.Unlock()
		return ErrNotStarted
	}
	b.running = false
	cancel := b.cancel
	done := b.done
	b.lifeMu.Unlock()

	var errs []error
	if err := b.bus.Unsubscribe(b.topics.AllBridgeCommands()); err != nil {
		errs = append(errs, fmt.Errorf("unsubscribe from commands: %w", err))
	}
	cancel()

	select {
	case <-done:
		b.logger.Info("bridge stopped")
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for bridge goroutines: %w", ctx.Err()))
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		CommandsReceived: b.received.Load(),
		CommandsAccepted: b.accepted.Load(),
		CommandsFailed:   b.failed.Load(),
		CommandsDropped:  b.dropped.Load(),
		StatesPublished:  b.published.Load(),
	}
}

// handleCommandMessage queues commands for the worker. A full queue drops
// the command; the handler must not block the MQTT router.
func (b *Bridge) handleCommandMessage(queue chan<- queuedCommand) inels.MessageHandler {
	return func(topic string, payload []byte) error {
		key, ok := b.topics.BridgeCommandKey(topic)
		if !ok {
			b.logger.Warn("ignoring command on unexpected topic", "topic", topic)
			return nil
		}
		b.received.Add(1)

		select {
		case queue <- queuedCommand{key: key, payload: append([]byte(nil), payload...)}:
		default:
			b.dropped.Add(1)
			b.logger.Warn("command queue full, dropping command", "key", key)
		}
		return nil
	}
}

func (b *Bridge) runCommands(ctx context.Context, queue <-chan queuedCommand) {
	for {
		select {
		case <-ctx.Done():
			return
		case qc := <-queue:
			b.handleCommand(ctx, qc.key, qc.payload)
		}
	}
}

// handleCommand parses, routes and executes one command, then acks it.
func (b *Bridge) handleCommand(ctx context.Context, key string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.fail(cmd, "", key, ErrCodeInvalidPayload, fmt.Sprintf("parsing command: %v", err))
		return
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	d, ok := b.fleet.Get(key)
	if !ok {
		b.fail(cmd, "", key, ErrCodeNotConfigured, fmt.Sprintf("device %s not configured", key))
		return
	}

	b.logger.Info("received command",
		"command_id", cmd.ID,
		"device", d.Name(),
		"command", cmd.Command,
		"source", cmd.Source)

	execCtx, cancel := context.WithTimeout(ctx, b.commandTimeout)
	defer cancel()

	err := d.Execute(execCtx, inels.Command{Name: cmd.Command, Params: cmd.Parameters})
	if err != nil {
		b.fail(cmd, d.Name(), d.Key(), errorCode(err), err.Error())
		return
	}

	b.accepted.Add(1)
	b.publishAck(NewAckMessage(cmd, d.Name(), d.Key()))
}

func (b *Bridge) fail(cmd CommandMessage, device, key, code, message string) {
	b.failed.Add(1)
	b.logger.Warn("command failed",
		"command_id", cmd.ID,
		"key", key,
		"command", cmd.Command,
		"code", code,
		"error", message)
	b.publishAck(NewAckError(cmd, device, key, code, message))
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logger.Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.bus.Publish(b.topics.BridgeAck(ack.Key), payload, b.qos, false); err != nil {
		b.logger.Error("failed to publish ack", "key", ack.Key, "error", err)
	}
}

// errorCode maps a device error to an ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, inels.ErrDeviceDisconnected):
		return ErrCodeDeviceUnreachable
	case errors.Is(err, inels.ErrCommandNotSupported):
		return ErrCodeInvalidCommand
	case errors.Is(err, inels.ErrInvalidArgument):
		return ErrCodeInvalidParameters
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeProtocolError
	}
}

// watchState publishes the device status each time its version moves.
// Updates that land while a publish is in flight are coalesced into the
// next snapshot.
func (b *Bridge) watchState(ctx context.Context, d *inels.Device) {
	var seen uint64
	for {
		version, err := d.AwaitStatusVersion(ctx, seen)
		if err != nil {
			return
		}
		seen = version

		status, err := d.Status()
		if err != nil {
			continue
		}
		b.publishState(d, version, status)
	}
}

func (b *Bridge) publishState(d *inels.Device, version uint64, status inels.Status) {
	payload, err := json.Marshal(NewStateMessage(d, version, status))
	if err != nil {
		b.logger.Error("failed to marshal state", "device", d.Name(), "error", err)
		return
	}
	if err := b.bus.Publish(b.topics.BridgeState(d.Key()), payload, b.qos, true); err != nil {
		b.logger.Error("failed to publish state", "device", d.Name(), "error", err)
		return
	}
	b.published.Add(1)
	b.logger.Debug("state published", "device", d.Name(), "version", version)
}
