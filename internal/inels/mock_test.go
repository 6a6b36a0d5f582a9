package inels

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockBus is a thread-safe Bus for testing.
type mockBus struct {
	mu           sync.Mutex
	handlers     map[string]MessageHandler
	subscribed   []string
	unsubscribed []string
	published    []publishedMessage

	subscribeErr map[string]error
	publishErr   error
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newMockBus() *mockBus {
	return &mockBus{
		handlers:     make(map[string]MessageHandler),
		subscribeErr: make(map[string]error),
	}
}

func (m *mockBus) Subscribe(topic string, _ byte, handler MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.subscribeErr[topic]; err != nil {
		return err
	}
	m.subscribed = append(m.subscribed, topic)
	m.handlers[topic] = handler
	return nil
}

func (m *mockBus) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, topic)
	delete(m.handlers, topic)
	return nil
}

func (m *mockBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMessage{
		topic:    topic,
		payload:  payload,
		qos:      qos,
		retained: retained,
	})
	return nil
}

// deliver simulates an incoming message. It reports false when nothing is
// subscribed to topic.
func (m *mockBus) deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return false
	}
	_ = h(topic, payload) //nolint:errcheck // test delivery
	return true
}

func (m *mockBus) getPublished() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

func (m *mockBus) hasHandler(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[topic]
	return ok
}

// mockTelemetry records protocol events by name.
type mockTelemetry struct {
	mu     sync.Mutex
	events []string
	tags   []map[string]string
}

func (m *mockTelemetry) WritePoint(_ string, tags map[string]string, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, tags["event"])
	m.tags = append(m.tags, tags)
}

func (m *mockTelemetry) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e == event {
			n++
		}
	}
	return n
}

// newStartedDevice builds and starts a device on a fresh mock bus.
func newStartedDevice(t *testing.T, typ DeviceType, opts Options) (*Device, *mockBus) {
	t.Helper()
	bus := newMockBus()
	d, err := New(bus, "AA:BB:CC:DD:EE:FF", "001122", typ, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := d.Stop(ctx); err != nil && !errors.Is(err, ErrNotStarted) {
			t.Errorf("Stop() error = %v", err)
		}
	})
	return d, bus
}

// setConnected delivers a connected message and waits until it is applied.
func setConnected(t *testing.T, d *Device, bus *mockBus, online bool) {
	t.Helper()
	payload := []byte("0")
	if online {
		payload = []byte("1")
	}
	if !bus.deliver(d.Topics().Connected, payload) {
		t.Fatalf("no handler for %s", d.Topics().Connected)
	}
	eventually(t, func() bool { return d.IsConnected() == online })
}

// deliverStatus delivers a status payload and waits until it is applied.
func deliverStatus(t *testing.T, d *Device, bus *mockBus, payload []byte) {
	t.Helper()
	before := d.StatusVersion()
	if !bus.deliver(d.Topics().Status, payload) {
		t.Fatalf("no handler for %s", d.Topics().Status)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.AwaitStatusVersion(ctx, before); err != nil {
		t.Fatalf("status not applied: %v", err)
	}
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}
