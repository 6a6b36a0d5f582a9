// iNELS Core - RF device protocol service
//
// This is the main entry point for the iNELS core. It tracks every
// configured RF device over MQTT (connection state, decoded status) and
// forwards commands to them, optionally through a JSON bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/inels-core/internal/bridge"
	"github.com/nerrad567/inels-core/internal/inels"
	"github.com/nerrad567/inels-core/internal/infrastructure/config"
	"github.com/nerrad567/inels-core/internal/infrastructure/database"
	"github.com/nerrad567/inels-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/inels-core/internal/infrastructure/logging"
	"github.com/nerrad567/inels-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/inels-core/internal/inventory"
	"github.com/nerrad567/inels-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// defaultConfigPath is used when INELS_CONFIG is unset.
	defaultConfigPath = "configs/config.yaml"

	// shutdownTimeout bounds stopping the bridge and the fleet.
	shutdownTimeout = 10 * time.Second

	// statsInterval is how often fleet counters are written to InfluxDB.
	statsInterval = time.Minute
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting iNELS core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	registry := inventory.NewRegistry(inventory.NewSQLiteRepository(db))
	registry.SetLogger(log.Component("inventory"))
	if _, syncErr := registry.Sync(ctx, cfg.Devices); syncErr != nil {
		return fmt.Errorf("syncing device inventory: %w", syncErr)
	}

	topics := mqtt.Topics{Prefix: cfg.Bridge.TopicPrefix}
	mqttClient, err := mqtt.Connect(cfg.MQTT, topics)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	influxClient, err := connectInfluxDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	opts := inels.Options{
		QoS:    byte(cfg.MQTT.QoS), //nolint:gosec // validated 0-2
		Logger: log.Component("inels"),
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
	}
	fleet, err := registry.BuildFleet(mqttClient, opts, log.Component("fleet"))
	if err != nil {
		return fmt.Errorf("building device fleet: %w", err)
	}
	if startErr := fleet.StartAll(ctx); startErr != nil {
		return fmt.Errorf("starting devices: %w", startErr)
	}
	defer stopWithTimeout(log, "devices", fleet.StopAll)

	if cfg.Bridge.Enabled {
		b, bridgeErr := bridge.New(bridge.Options{
			Bus:            mqttClient,
			Fleet:          fleet,
			Topics:         topics,
			QoS:            opts.QoS,
			CommandTimeout: cfg.GetCommandTimeout(),
			Logger:         log.Component("bridge"),
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating bridge: %w", bridgeErr)
		}
		if startErr := b.Start(ctx); startErr != nil {
			return fmt.Errorf("starting bridge: %w", startErr)
		}
		defer stopWithTimeout(log, "bridge", b.Stop)
	} else {
		log.Info("JSON bridge disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed", "devices", fleet.Len())

	if influxClient != nil {
		go reportFleetStats(ctx, fleet, influxClient, statsInterval)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: bridge, devices, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns INELS_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("INELS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInfluxDB connects when telemetry is enabled. A nil client with a
// nil error means telemetry is off.
func connectInfluxDB(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// stopWithTimeout runs a Stop-style function on a fresh context, since the
// run context is already cancelled at shutdown.
func stopWithTimeout(log *logging.Logger, what string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("stopping " + what)
	if err := stop(ctx); err != nil {
		log.Error("error stopping "+what, "error", err)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// fleetStatsWriter is the part of *influxdb.Client used for fleet snapshots.
type fleetStatsWriter interface {
	WriteFleetStats(stats inels.Stats, devices, online int)
}

// reportFleetStats writes a fleet counter snapshot every interval until ctx ends.
func reportFleetStats(ctx context.Context, fleet *inels.Fleet, w fleetStatsWriter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeFleetStats(fleet, w)
		}
	}
}

func writeFleetStats(fleet *inels.Fleet, w fleetStatsWriter) {
	devices := fleet.List()
	online := 0
	for _, d := range devices {
		if d.IsConnected() {
			online++
		}
	}
	w.WriteFleetStats(fleet.Stats(), len(devices), online)
}
