package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger is the interface the engine needs for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SensorReader provides last-known temperature values. Reads must be
// non-blocking: a stale or missing reading never blocks a cycle.
type SensorReader interface {
	// ReadTemperature returns the last-known value for a sensor
	// reference, or false when unavailable.
	ReadTemperature(ref string) (float64, bool)

	// ReadOutdoorTemperature returns the last-known outdoor value,
	// or false when unavailable.
	ReadOutdoorTemperature() (float64, bool)
}

// Commander dispatches actuation. Commands are fire-and-forget: the
// engine never awaits confirmation that a device changed state, relying
// on the next cycle's sensor feedback to correct for failures.
type Commander interface {
	// SetDeviceState drives a climate actuator on or off.
	SetDeviceState(device string, on bool, reason string)

	// RunScript invokes a dumb-device on/off script.
	RunScript(script string, reason string)
}

// Metrics receives per-cycle telemetry. All methods must be non-blocking.
type Metrics interface {
	WriteRoomMetric(roomID, phase string, current, target, magnitude float64, tier int)
	WriteCycleMetric(roomsEvaluated, commandsIssued int, durationMs float64)
	WriteWeatherMetric(roomID string, outdoorTemp float64, allowed bool, reason string)
}

// Recorder persists completed cycles and their emitted commands.
type Recorder interface {
	RecordCycle(ctx context.Context, cycle CycleRecord) error
}

// roomOverride holds the per-room user override surface. Nil fields
// fall through to the configured values.
type roomOverride struct {
	enabled   *bool
	target    *float64
	tolerance *float64
}

// Orchestrator runs the control loop: it sequences full evaluation
// cycles, diffs the resulting command set against the previous cycle's
// commanded state, and emits only changes.
//
// Thread Safety: all exported methods are safe for concurrent use.
// Cycles never run concurrently with each other; triggers arriving
// mid-cycle coalesce into one pending re-run.
type Orchestrator struct {
	sensors   SensorReader
	commander Commander
	logger    Logger

	metrics  Metrics
	recorder Recorder
	onCycle  func(CycleStatus)

	interval time.Duration
	debounce time.Duration

	// trigger coalesces change events into at most one pending cycle.
	trigger chan struct{}

	mu            sync.RWMutex
	cfg           *ZonesConfig
	modeOverride  *Mode
	profOverride  *Profile
	roomOverrides map[string]roomOverride
	states        map[string]*RoomState
	lastCommanded map[string]DeviceState
	lastStatus    CycleStatus
}

// Default control loop timing.
const (
	defaultInterval = 30 * time.Second
	defaultDebounce = 2 * time.Second
)

// NewOrchestrator creates a control loop orchestrator.
//
// Parameters:
//   - cfg: Validated zones configuration (re-validated defensively)
//   - sensors: Temperature input (non-blocking last-known values)
//   - commander: Actuation output (asynchronous, fire-and-forget)
//   - logger: Logger instance (nil for no logging)
//
// Returns:
//   - *Orchestrator: Ready to Run
//   - error: ErrInvalidConfig if the configuration fails validation
func NewOrchestrator(cfg *ZonesConfig, sensors SensorReader, commander Commander, logger Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = noopLogger{}
	}

	o := &Orchestrator{
		sensors:       sensors,
		commander:     commander,
		logger:        logger,
		interval:      defaultInterval,
		debounce:      defaultDebounce,
		trigger:       make(chan struct{}, 1),
		cfg:           cfg,
		roomOverrides: make(map[string]roomOverride),
		states:        make(map[string]*RoomState),
		lastCommanded: make(map[string]DeviceState),
	}

	for i := range cfg.Rooms {
		room := &cfg.Rooms[i]
		o.states[room.ID] = &RoomState{RoomID: room.ID, Phase: PhaseIdle}
	}

	o.warnUndeclaredShared(cfg)

	return o, nil
}

// warnUndeclaredShared flags devices shared between rooms without a
// shared_devices declaration. Logged once per configuration, not per
// cycle: the condition cannot change until the configuration does.
func (o *Orchestrator) warnUndeclaredShared(cfg *ZonesConfig) {
	for _, dev := range cfg.undeclaredSharedDevices() {
		o.logger.Warn("device referenced by multiple rooms without shared declaration", "device", dev)
	}
}

// SetInterval sets the timer-tick period between cycles.
func (o *Orchestrator) SetInterval(d time.Duration) {
	if d > 0 {
		o.interval = d
	}
}

// SetDebounce sets the coalescing delay applied to change-event triggers.
func (o *Orchestrator) SetDebounce(d time.Duration) {
	if d >= 0 {
		o.debounce = d
	}
}

// SetMetrics attaches a telemetry sink. May be nil.
func (o *Orchestrator) SetMetrics(m Metrics) {
	o.metrics = m
}

// SetRecorder attaches a cycle history store. May be nil.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// SetOnCycle registers a callback invoked with the status snapshot
// after every completed cycle. Used for retained MQTT status
// publication. Must be set before Run.
func (o *Orchestrator) SetOnCycle(fn func(CycleStatus)) {
	o.onCycle = fn
}

// Run executes the control loop until the context is cancelled.
//
// An initial cycle runs immediately, then cycles are driven by the
// timer tick and by Trigger events. Exactly one cycle is in flight at
// any time.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("control loop started",
		"interval", o.interval.String(),
		"debounce", o.debounce.String(),
		"rooms", len(o.cfg.Rooms),
	)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("control loop stopped")
			return nil

		case <-ticker.C:
			o.runCycle(ctx)

		case <-o.trigger:
			if !o.waitDebounce(ctx) {
				o.logger.Info("control loop stopped")
				return nil
			}
			o.runCycle(ctx)
		}
	}
}

// waitDebounce holds off briefly after a change event so bursts of
// sensor updates coalesce into one cycle. Returns false when the
// context is cancelled during the wait.
func (o *Orchestrator) waitDebounce(ctx context.Context) bool {
	if o.debounce <= 0 {
		return true
	}

	timer := time.NewTimer(o.debounce)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	// Drain any trigger that arrived during the wait: the cycle about
	// to run covers it.
	select {
	case <-o.trigger:
	default:
	}
	return true
}

// Trigger requests an evaluation cycle. Safe to call from any
// goroutine; triggers arriving while a cycle is in flight (or already
// pending) coalesce into one pending re-run rather than queuing.
func (o *Orchestrator) Trigger() {
	select {
	case o.trigger <- struct{}{}:
	default:
	}
}

// UpdateConfig atomically replaces the zones configuration. The change
// takes effect at the next cycle; a cycle already in flight completes
// against the configuration it snapshotted.
//
// Room states are created for new rooms and destroyed for removed ones;
// per-room overrides and previously commanded devices that left the
// configuration are dropped.
func (o *Orchestrator) UpdateConfig(cfg *ZonesConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.cfg = cfg

	current := make(map[string]bool, len(cfg.Rooms))
	for i := range cfg.Rooms {
		room := &cfg.Rooms[i]
		current[room.ID] = true
		if _, ok := o.states[room.ID]; !ok {
			o.states[room.ID] = &RoomState{RoomID: room.ID, Phase: PhaseIdle}
		}
	}
	for id := range o.states {
		if !current[id] {
			delete(o.states, id)
			delete(o.roomOverrides, id)
		}
	}

	devices := configuredDevices(cfg)
	for dev := range o.lastCommanded {
		if !devices[dev] {
			delete(o.lastCommanded, dev)
		}
	}

	o.logger.Info("zones configuration replaced", "rooms", len(cfg.Rooms), "shared_devices", len(cfg.SharedDevices))
	o.warnUndeclaredShared(cfg)
	return nil
}

// configuredDevices returns every actuator reference in the configuration.
func configuredDevices(cfg *ZonesConfig) map[string]bool {
	devices := make(map[string]bool)
	for i := range cfg.Rooms {
		room := &cfg.Rooms[i]
		for _, dev := range allDevices(room.Heat) {
			devices[dev] = true
		}
		for _, dev := range allDevices(room.Cool) {
			devices[dev] = true
		}
		for j := range room.DumbDevices {
			devices[room.DumbDevices[j].ID] = true
		}
	}
	return devices
}

// SetMode overrides the operating mode.
func (o *Orchestrator) SetMode(m Mode) error {
	if !validMode(m) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	o.mu.Lock()
	o.modeOverride = &m
	o.mu.Unlock()

	o.logger.Info("mode override set", "mode", string(m))
	o.Trigger()
	return nil
}

// SetProfile overrides the escalation profile.
func (o *Orchestrator) SetProfile(p Profile) error {
	if !validProfile(p) {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, p)
	}
	o.mu.Lock()
	o.profOverride = &p
	o.mu.Unlock()

	o.logger.Info("profile override set", "profile", string(p))
	o.Trigger()
	return nil
}

// SetRoomEnabled overrides a room's enable switch. A disabled room
// behaves as mode off for that room.
func (o *Orchestrator) SetRoomEnabled(roomID string, enabled bool) error {
	return o.setRoomOverride(roomID, func(ov *roomOverride) {
		ov.enabled = &enabled
	})
}

// SetRoomTarget overrides a room's target temperature.
func (o *Orchestrator) SetRoomTarget(roomID string, target float64) error {
	return o.setRoomOverride(roomID, func(ov *roomOverride) {
		ov.target = &target
	})
}

// SetRoomTolerance overrides a room's tolerance band.
func (o *Orchestrator) SetRoomTolerance(roomID string, tolerance float64) error {
	if tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidConfig)
	}
	return o.setRoomOverride(roomID, func(ov *roomOverride) {
		ov.tolerance = &tolerance
	})
}

// ClearRoomOverrides removes all overrides for a room.
func (o *Orchestrator) ClearRoomOverrides(roomID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cfg.Room(roomID) == nil {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}
	delete(o.roomOverrides, roomID)
	o.logger.Info("room overrides cleared", "room_id", roomID)
	return nil
}

func (o *Orchestrator) setRoomOverride(roomID string, apply func(*roomOverride)) error {
	o.mu.Lock()
	if o.cfg.Room(roomID) == nil {
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}
	ov := o.roomOverrides[roomID]
	apply(&ov)
	o.roomOverrides[roomID] = ov
	o.mu.Unlock()

	o.logger.Info("room override set", "room_id", roomID)
	o.Trigger()
	return nil
}

// Status returns the snapshot from the most recent completed cycle.
// Read-only: it never feeds back into the next cycle's decisions.
func (o *Orchestrator) Status() CycleStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastStatus
}

// RoomStatus returns the most recent status for one room.
func (o *Orchestrator) RoomStatus(roomID string) (RoomStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, rs := range o.lastStatus.Rooms {
		if rs.RoomID == roomID {
			return rs, nil
		}
	}
	return RoomStatus{}, fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
}
