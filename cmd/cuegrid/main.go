// CueGrid Core - Live Sequencing & Scene-Control Engine
//
// This is the main entry point for the CueGrid Core application. It wires
// together the sequence player, scene set, device monitoring, the MQTT
// bridge to the lighting driver and grid controller, and the HTTP/WebSocket
// API used by the operator GUI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/cuegrid/cuegrid-core/migrations"

	"github.com/cuegrid/cuegrid-core/internal/api"
	"github.com/cuegrid/cuegrid-core/internal/bridge"
	"github.com/cuegrid/cuegrid-core/internal/device"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/config"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/database"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/influxdb"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/logging"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/mqtt"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/tsdb"
	"github.com/cuegrid/cuegrid-core/internal/scene"
	"github.com/cuegrid/cuegrid-core/internal/sequence"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit // startup wiring is linear but long
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting CueGrid Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the playback history database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load the sequence store
	store := sequence.NewStore(cfg.Storage.SequencesPath, log)
	log.Info("sequence store loaded",
		"path", cfg.Storage.SequencesPath,
		"sequences", store.Count(),
	)

	// Connect to the MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2 by config.Validate

	// Scene set writing through the MQTT lighting output
	scenes := scene.NewSet(bridge.NewLightingOutput(mqttClient, qos))
	scenes.SetLogger(log)

	// Sequence player over the store and scene set
	player := sequence.NewPlayer(store, scenes, sequence.Config{
		BeatsPerBar: cfg.Playback.BeatsPerBar,
		JoinTimeout: cfg.GetWorkerJoinTimeout(),
	}, log)
	defer player.Clear()

	history := sequence.NewHistoryRepository(db.DB, log)
	player.SetHistory(history)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var telemetry *tsdb.Writer
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = tsdb.NewWriter(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device registry and reconnection monitor
	registry := device.NewRegistry()
	registry.SetLogger(log)

	monitor := device.NewMonitor(registry, cfg.GetPollInterval(), cfg.Monitor.MaxReconnectAttempts)
	monitor.SetLogger(log)

	// Bridge: scene commands out, feedback / buttons / clock ticks in
	br := bridge.New(mqttClient, scenes, player, qos, log)
	if startErr := br.Start(); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	br.RegisterWithMonitor(monitor)

	monitor.Start()
	defer func() {
		log.Info("stopping device monitor")
		monitor.Stop()
	}()
	log.Info("device monitor started", "interval", cfg.GetPollInterval())

	// HTTP API and WebSocket server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Player:   player,
		Scenes:   scenes,
		Registry: registry,
		History:  history,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Fan player, scene, and device events out to WebSocket clients and
	// the telemetry writer
	events := api.NewEvents(server.Hub(), telemetry)
	player.SetNotifier(events)
	scenes.SetNotifier(events)
	registry.AddListener(events.DeviceStateChanged)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, device monitor, InfluxDB (if enabled), player, MQTT, database

	log.Info("CueGrid Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CUEGRID_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CUEGRID_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
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
