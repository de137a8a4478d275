// Zone Climate Core - Multi-Room Heating/Cooling Decision Engine
//
// This is the main entry point for the Zone Climate Core service.
// The engine consumes temperature readings over MQTT, decides per-room
// heating/cooling demand, escalates device categories by demand
// magnitude, gates weather-sensitive equipment on outdoor temperature,
// arbitrates shared devices across rooms, and emits only the actuator
// state changes each cycle.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/zone-climate-core/internal/actuator"
	"github.com/nerrad567/zone-climate-core/internal/api"
	"github.com/nerrad567/zone-climate-core/internal/engine"
	"github.com/nerrad567/zone-climate-core/internal/history"
	"github.com/nerrad567/zone-climate-core/internal/infrastructure/config"
	"github.com/nerrad567/zone-climate-core/internal/infrastructure/database"
	"github.com/nerrad567/zone-climate-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/zone-climate-core/internal/infrastructure/logging"
	"github.com/nerrad567/zone-climate-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/zone-climate-core/internal/sensors"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
//
//nolint:gocognit,gocyclo // wiring is a flat sequence of component startups
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Zone Climate Core",
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

	// Initialise cycle history store
	historyRepo, err := history.NewRepository(db.DB)
	if err != nil {
		return fmt.Errorf("initialising history store: %w", err)
	}
	log.Info("history store initialised")

	// Load zones configuration (rooms, devices, arbitration)
	zones, err := engine.LoadZones(cfg.Engine.ZonesFile)
	if err != nil {
		return fmt.Errorf("loading zones config: %w", err)
	}
	log.Info("zones configuration loaded",
		"path", cfg.Engine.ZonesFile,
		"rooms", len(zones.Rooms),
		"shared_devices", len(zones.SharedDevices),
	)

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

	// Sensor store: last-known temperature values fed by MQTT
	store := sensors.NewStore(zones.Global.OutdoorSensor, log)

	// Command dispatcher: async actuation over MQTT
	dispatcher := actuator.NewDispatcher(mqttClient, log)
	defer func() {
		log.Info("closing command dispatcher")
		dispatcher.Close()
	}()

	// Control loop orchestrator
	orch, err := engine.NewOrchestrator(zones, store, dispatcher, log)
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}
	orch.SetInterval(cfg.Engine.Interval())
	orch.SetDebounce(cfg.Engine.Debounce())
	orch.SetRecorder(historyRepo)
	if influxClient != nil {
		orch.SetMetrics(influxClient)
	}
	orch.SetOnCycle(publishStatus(mqttClient, log))

	// Sensor changes trigger a debounced evaluation cycle
	store.SetOnChange(func(string) {
		orch.Trigger()
	})

	// Feed the sensor store from the sensor reading topics
	if err := mqttClient.Subscribe(mqtt.Topics{}.AllSensorReadings(), byte(cfg.MQTT.QoS), store.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to sensor readings: %w", err)
	}
	log.Info("subscribed to sensor readings", "topic", mqtt.Topics{}.AllSensorReadings())

	// Start HTTP status API
	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		Logger:       log,
		Orchestrator: orch,
		History:      historyRepo,
		ZonesFile:    cfg.Engine.ZonesFile,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, control loop starting")

	// Run the control loop until the context cancels. Deferred Close()
	// calls then run in reverse order: API, dispatcher, InfluxDB (if
	// enabled), MQTT, database.
	if err := orch.Run(ctx); err != nil {
		return fmt.Errorf("control loop: %w", err)
	}

	log.Info("Zone Climate Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ZONECLIMATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ZONECLIMATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// publishStatus returns the per-cycle callback that publishes retained
// status topics: one per room plus the cycle summary. New subscribers
// receive the latest snapshot immediately.
func publishStatus(client *mqtt.Client, log *logging.Logger) func(engine.CycleStatus) {
	topics := mqtt.Topics{}
	return func(status engine.CycleStatus) {
		for _, room := range status.Rooms {
			payload, err := json.Marshal(room)
			if err != nil {
				log.Error("marshalling room status", "room_id", room.RoomID, "error", err)
				continue
			}
			if err := client.PublishRetained(topics.RoomStatus(room.RoomID), payload); err != nil {
				log.Warn("publishing room status", "room_id", room.RoomID, "error", err)
			}
		}

		payload, err := json.Marshal(status)
		if err != nil {
			log.Error("marshalling cycle status", "cycle_id", status.CycleID, "error", err)
			return
		}
		if err := client.PublishRetained(topics.CycleStatus(), payload); err != nil {
			log.Warn("publishing cycle status", "cycle_id", status.CycleID, "error", err)
		}
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
