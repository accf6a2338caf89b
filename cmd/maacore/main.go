// maa-core hosts the native automation engine for one or more devices.
//
// It loads the engine libraries, turns engine callbacks into events on an
// in-process bus, keeps per-device task lists in SQLite and optionally
// mirrors events to MQTT and task history to InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/nerrad567/maa-core/migrations"

	"github.com/nerrad567/maa-core/internal/api"
	"github.com/nerrad567/maa-core/internal/callback"
	"github.com/nerrad567/maa-core/internal/device"
	"github.com/nerrad567/maa-core/internal/engine"
	"github.com/nerrad567/maa-core/internal/event"
	"github.com/nerrad567/maa-core/internal/infrastructure/config"
	"github.com/nerrad567/maa-core/internal/infrastructure/database"
	"github.com/nerrad567/maa-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/maa-core/internal/infrastructure/logging"
	"github.com/nerrad567/maa-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/maa-core/internal/settings"
	"github.com/nerrad567/maa-core/internal/task"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds the final task list save.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting maa-core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	settingsStore := settings.NewStore(db.DB)

	// Engine failures are not fatal: the UI stays up and reports the engine
	// as unavailable.
	var eng *engine.Engine
	if cfg.Engine.Enabled {
		eng, err = engine.Open(ctx, engine.Options{
			Settings:     settingsStore,
			AppName:      cfg.App.Name,
			DataDir:      cfg.App.DataDir,
			ResourcePath: cfg.Engine.ResourcePath,
			Logger:       log.Component("engine"),
		})
		if err != nil {
			log.Warn("engine unavailable", "error", err)
		}
	} else {
		log.Info("engine disabled")
	}

	bus := event.NewBus()
	bus.SetLogger(log)
	defer bus.Clear()

	dispatcher := callback.NewDispatcher(bus, cfg.Engine.QueueSize, log.Component("dispatcher"))
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(dispatchCtx)
	}()

	influxClient, err := connectInfluxDB(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	defer func() {
		if influxClient == nil {
			return
		}
		log.Info("closing InfluxDB connection", "write_failures", influxClient.Failures())
		if closeErr := influxClient.Close(); closeErr != nil {
			log.Error("error closing InfluxDB", "error", closeErr)
		}
	}()

	tasks := task.NewStore(task.NewSQLiteRepository(db.DB))
	tasks.SetLogger(log.Component("task"))
	tasks.SetNotifier(task.NewBusNotifier(bus))
	if influxClient != nil {
		tasks.SetRecorder(runRecorder{client: influxClient})
		go reportDispatcherStats(dispatchCtx, dispatcher, influxClient,
			time.Duration(cfg.InfluxDB.FlushInterval)*time.Second)
	}

	synchronizer := task.NewSynchronizer(tasks, bus)
	synchronizer.Start()
	defer synchronizer.Stop()

	manager := device.NewManager(eng, tasks, device.Options{
		Callback:       dispatcher.EngineCallback,
		DefaultADBPath: cfg.Engine.DefaultADBPath,
		DefaultProfile: cfg.Engine.DefaultProfile,
	})
	manager.SetLogger(log.Component("device"))

	mqttClient, forwarder, err := connectMQTT(ctx, cfg.MQTT, bus, manager, log.Component("mqtt"))
	if err != nil {
		return err
	}
	closeMQTT := sync.OnceFunc(func() {
		if mqttClient == nil {
			return
		}
		forwarder.Close()
		log.Info("disconnecting from MQTT", "events_dropped", forwarder.Dropped())
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	})
	defer closeMQTT()

	addDevices(ctx, manager, cfg.Devices, log)

	apiServer, err := startAPI(ctx, cfg, api.Deps{
		Logger:  log.Component("api"),
		Devices: manager,
		Tasks:   tasks,
		Events:  bus,
		Engine:  eng,
		Stats:   dispatcher,
		Version: version,
	})
	if err != nil {
		return err
	}
	closeAPI := sync.OnceFunc(func() {
		if apiServer == nil {
			return
		}
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	})
	defer closeAPI()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"engine_available", eng.Available(),
		"devices", len(manager.Devices()),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// No request or command may reach the engine once it starts closing.
	closeAPI()
	closeMQTT()

	saveCtx, cancelSave := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelSave()
	if saveErr := manager.SaveAll(saveCtx); saveErr != nil {
		log.Error("saving task lists", "error", saveErr)
	}

	// Closing the engine stops every instance, so no callbacks arrive after
	// this point and the queue can be drained.
	if closeErr := eng.Close(); closeErr != nil {
		log.Error("closing engine", "error", closeErr)
	}
	stopDispatch()
	<-dispatchDone
	if n := dispatcher.Drain(); n > 0 {
		log.Debug("drained engine callbacks", "count", n)
	}

	published, dropped := dispatcher.Stats()
	log.Info("maa-core stopped", "events_published", published, "events_dropped", dropped)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MAACORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MAACORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads path, falling back to the built-in defaults when the
// default file does not exist. An explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		if validateErr := cfg.Validate(); validateErr != nil {
			return nil, fmt.Errorf("validating default config: %w", validateErr)
		}
		return cfg, nil
	}
	return nil, err
}

// connectInfluxDB returns nil without error when InfluxDB is disabled.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg)
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

// connectMQTT mirrors bus events to the broker and routes command topics to
// the device manager. It returns nil without error when MQTT is disabled.
func connectMQTT(ctx context.Context, cfg config.MQTTConfig, bus *event.Bus, ctrl mqtt.DeviceController, log *logging.Logger) (*mqtt.Client, *mqtt.Forwarder, error) {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil, nil, nil
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT session established", "sessions", client.Sessions())
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// #nosec G115 -- qos validated to 0..2
	qos := byte(cfg.QoS)

	forwarder := mqtt.NewForwarder(client, qos)
	forwarder.SetLogger(log)
	bus.SubscribeAll(forwarder.Forward)

	if subErr := client.Subscribe(mqtt.Topics{}.AllCommands(), qos, mqtt.CommandHandler(ctx, ctrl)); subErr != nil {
		forwarder.Close()
		_ = client.Close()
		return nil, nil, fmt.Errorf("subscribing to commands: %w", subErr)
	}

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client, forwarder, nil
}

// startAPI starts the HTTP API when enabled. It returns nil without error
// when the API is disabled.
func startAPI(ctx context.Context, cfg *config.Config, deps api.Deps) (*api.Server, error) {
	if !cfg.API.Enabled {
		deps.Logger.Info("API server disabled")
		return nil, nil
	}

	deps.Config = cfg.API
	deps.WS = cfg.WebSocket
	server, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return server, nil
}

// addDevices attaches the configured devices. Failures are logged and the
// remaining devices are still attached.
func addDevices(ctx context.Context, manager *device.Manager, devices []config.DeviceConfig, log *logging.Logger) {
	for _, d := range devices {
		err := manager.Add(ctx, device.Connection{
			UUID:    d.UUID,
			Address: d.Address,
			ADBPath: d.ADBPath,
			Profile: d.Profile,
		})
		if err != nil {
			log.Warn("device not attached", "uuid", d.UUID, "address", d.Address, "error", err)
			continue
		}
		log.Info("device attached", "uuid", d.UUID, "address", d.Address)
	}
}

// healthCheck verifies the infrastructure connections. mqttClient and
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// runRecorder adapts the InfluxDB client to task.RunRecorder.
type runRecorder struct {
	client *influxdb.Client
}

// RecordRun implements task.RunRecorder.
func (r runRecorder) RecordRun(run task.Run) {
	r.client.WriteTaskRun(influxdb.TaskRun{
		DeviceUUID: run.UUID,
		Kind:       run.Kind,
		Title:      run.Title,
		Status:     string(run.Status),
		Duration:   run.Duration(),
		EndTime:    run.EndTime,
	})
}

// statsWriter is the part of the InfluxDB client used for dispatcher counters.
type statsWriter interface {
	WriteDispatcherStats(published, dropped uint64)
}

// reportDispatcherStats writes dispatcher counters every interval until ctx
// is cancelled.
func reportDispatcherStats(ctx context.Context, d *callback.Dispatcher, w statsWriter, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.WriteDispatcherStats(d.Stats())
		}
	}
}
