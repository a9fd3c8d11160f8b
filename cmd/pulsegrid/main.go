// PulseGrid Core - timing controller gateway for scientific imaging rigs.
//
// This is the main entry point for the PulseGrid Core application. Core
// compiles action tables into controller profiles, drives the DSP
// timing controller through its MQTT gateway, and exposes a control API
// plus WebSocket status stream to operator UIs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/pulsegrid-core/migrations"

	"github.com/nerrad567/pulsegrid-core/internal/api"
	"github.com/nerrad567/pulsegrid-core/internal/executor"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/config"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/database"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/logging"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/pulsegrid-core/internal/remote"
	"github.com/nerrad567/pulsegrid-core/internal/runlog"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting PulseGrid Core",
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

	// Open database
	db, err := database.Open(database.Config{
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Run log: run records plus carried device state
	runStore := runlog.NewStore(db.DB)

	// Connect to MQTT broker
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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Controller command link over MQTT
	conn, err := remote.NewClient(remote.ClientOptions{
		Broker:         mqttClient,
		DeviceID:       cfg.Controller.DeviceID,
		RequestTimeout: cfg.GetRequestTimeout(),
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating controller client: %w", err)
	}

	// WebSocket hub is created before the executor so status events
	// reach operator UIs from the first run.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	exec, err := executor.New(executor.Options{
		Connection:    conn,
		DeviceID:      cfg.Controller.DeviceID,
		Generation:    executor.Generation(cfg.Controller.Generation),
		TickRate:      cfg.Controller.TickRate,
		NotifyAddress: cfg.Controller.NotifyAddress,
		Status:        api.NewStatusBroadcaster(hub),
		Recorder:      newRunRecorder(runStore, influxClient),
		States:        runStore,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}

	if initErr := exec.Initialize(ctx); initErr != nil {
		log.Warn("controller initialization failed, will retry on first prepare", "error", initErr)
	} else {
		log.Info("controller initialized",
			"device", cfg.Controller.DeviceID,
			"generation", cfg.Controller.Generation,
		)
	}

	// Resume carried state from the previous session
	if state, found, loadErr := runStore.LoadDeviceState(ctx, cfg.Controller.DeviceID); loadErr != nil {
		log.Warn("failed to load persisted device state", "error", loadErr)
	} else if found {
		exec.SetState(state)
		log.Info("device state restored",
			"device", cfg.Controller.DeviceID,
			"digital", state.Digital,
		)
	}

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Exec:     exec,
		Runs:     runStore,
		MQTT:     mqttClient,
		Hub:      hub,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Release any blocked Execute caller before the deferred closes run
	exec.Abort(context.Background())

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("PulseGrid Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PULSEGRID_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PULSEGRID_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// runRecorder fans run records out to the local run log and, when
// enabled, InfluxDB run metrics.
type runRecorder struct {
	store  *runlog.Store
	influx *influxdb.Client
}

func newRunRecorder(store *runlog.Store, influx *influxdb.Client) executor.RunRecorder {
	return &runRecorder{store: store, influx: influx}
}

func (r *runRecorder) RecordRun(ctx context.Context, rec executor.RunRecord) error {
	if r.influx != nil {
		r.influx.WriteRunMetric(
			rec.DeviceID,
			string(rec.Generation),
			rec.FinishedAt.Sub(rec.StartedAt),
			rec.DigitalEvents,
			rec.AnalogEvents,
			rec.Violations,
			rec.Aborted,
		)
	}
	return r.store.RecordRun(ctx, rec)
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
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
