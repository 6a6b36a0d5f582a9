package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/inels-core/internal/inels"
	"github.com/nerrad567/inels-core/internal/infrastructure/config"
	"github.com/nerrad567/inels-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "inels-dev-token",
		Org:           "inels",
		Bucket:        "protocol",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip returns a live client or skips when InfluxDB is not running.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := influxdb.Connect(ctx, testConfig(), "test-site")
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// Compile-time check that the client can be handed to devices.
var _ inels.Telemetry = (*influxdb.Client)(nil)

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	client, err := influxdb.Connect(context.Background(), cfg, "test-site")
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := influxdb.Connect(ctx, cfg, "test-site")
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClosedClient_IsSafe(t *testing.T) {
	var nilClient *influxdb.Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
	if nilClient.IsConnected() {
		t.Error("nil IsConnected() = true")
	}

	client := &influxdb.Client{}
	// Writes on a client that never connected are dropped.
	client.WritePoint("inels_protocol", map[string]string{"event": "link_up"}, map[string]interface{}{"count": 1})
	client.WriteFleetStats(inels.Stats{}, 0, 0)
	client.Flush()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestConnect(t *testing.T) {
	client := connectOrSkip(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_ThenWrite(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}

	// Must not panic.
	client.WritePoint("inels_protocol", nil, map[string]interface{}{"count": 1})
}

func TestWritePoint_ProtocolEvents(t *testing.T) {
	client := connectOrSkip(t)

	var mu sync.Mutex
	var writeErrs []error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErrs = append(writeErrs, err)
		mu.Unlock()
	})

	for _, event := range []string{"link_up", "command_published", "decode_error", "link_down"} {
		client.WritePoint("inels_protocol",
			map[string]string{"device": "test-dimmer", "key": "AA:BB:CC:DD:EE:FF/05/001122", "type": "05", "event": event},
			map[string]interface{}{"count": 1})
	}
	client.WriteFleetStats(inels.Stats{StatusUpdates: 3, CommandsPublished: 1}, 1, 1)
	client.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(writeErrs) > 0 {
		t.Errorf("write errors: %v", writeErrs)
	}
}
