// xComfort Core - bridge telemetry state engine
//
// xcomfortd consumes the snapshot and update feed of an Eaton xComfort
// bridge over MQTT, keeps a typed state model of every device and room,
// derives heater power and energy, and exposes the result through
// Prometheus, InfluxDB, a REST API and a WebSocket event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/xcomfort-core/migrations"

	"github.com/nerrad567/xcomfort-core/internal/api"
	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/database"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/logging"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/xcomfort-core/internal/power"
	"github.com/nerrad567/xcomfort-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// energyPersistInterval is how often heater energy totals are written
	// to SQLite while running. A final save happens on shutdown.
	energyPersistInterval = 5 * time.Minute
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application body, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting xComfort Core",
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

	db, err := database.Open(cfg.Database)
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

	auditRepo := audit.NewSQLiteRepository(db.DB)
	energyStore := power.NewSQLiteStore(db.DB)

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

	influxClient, err := connectInflux(ctx, cfg.InfluxDB, log)
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

	promRegistry := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(promRegistry)
	recorderOpts := telemetry.RecorderOptions{RoomPower: cfg.Power.AddRoomPowerSensors}
	if influxClient != nil {
		// Assigned only when enabled so the interface stays nil otherwise.
		recorderOpts.Points = influxClient
	}
	recorder := telemetry.NewRecorder(metrics, recorderOpts)

	bridge, err := xcomfort.NewBridge(xcomfort.Options{
		Bridge:      cfg.Bridge,
		Power:       cfg.Power,
		QoS:         byte(cfg.MQTT.QoS),
		Version:     version,
		MQTT:        mqttClient,
		Logger:      log,
		Metrics:     metrics,
		Recorder:    recorder,
		Audit:       auditRepo,
		EnergyStore: energyStore,
	})
	if err != nil {
		return fmt.Errorf("creating xComfort bridge: %w", err)
	}
	if startErr := bridge.Start(ctx); startErr != nil {
		bridge.Stop()
		return fmt.Errorf("starting xComfort bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping xComfort bridge")
		bridge.Stop()
	}()

	waitForSnapshot(ctx, bridge, cfg.Bridge.SnapshotWait(), log)

	apiServer, err := api.New(api.Deps{
		Config:         cfg.API,
		WS:             cfg.WebSocket,
		Metrics:        cfg.Metrics,
		Logger:         log,
		Bridge:         bridge,
		Audit:          auditRepo,
		MQTT:           mqttClient,
		MetricsHandler: telemetry.Handler(promRegistry),
		Version:        version,
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

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return power.RunPersistence(gctx, bridge, energyStore, energyPersistInterval, log)
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Persistence performs its final save before the bridge tears down.
	if err := g.Wait(); err != nil {
		log.Error("energy persistence stopped with error", "error", err)
	}

	log.Info("xComfort Core stopped")
	return nil
}

// getConfigPath returns XCOMFORT_CONFIG when set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("XCOMFORT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInflux returns nil without error when InfluxDB export is disabled.
func connectInflux(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}

	client, err := influxdb.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client, nil
}

// waitForSnapshot blocks until the first bulk snapshot is applied or the
// wait expires. A missing snapshot is not fatal: the API answers 503 until
// one arrives.
func waitForSnapshot(ctx context.Context, bridge *xcomfort.Bridge, wait time.Duration, log *logging.Logger) {
	if wait <= 0 {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := bridge.WaitReady(waitCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("no bridge snapshot yet, continuing without state", "waited", wait)
			return
		}
		log.Warn("waiting for bridge snapshot interrupted", "error", err)
		return
	}
	log.Info("bridge snapshot applied")
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when export is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
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
	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
