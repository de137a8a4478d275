package engine

import "time"

// Phase is the demand state of a room. One instance per room persists
// across cycles to provide hysteresis at the target boundary.
type Phase string

const (
	// PhaseIdle means no demand condition holds (or inputs are unavailable).
	PhaseIdle Phase = "idle"

	// PhaseHeating means the room is below target beyond tolerance and
	// heat devices are being driven.
	PhaseHeating Phase = "heating"

	// PhaseCooling means the room is above target beyond tolerance and
	// cool devices are being driven.
	PhaseCooling Phase = "cooling"

	// PhaseTargetReached means an active phase just completed: current
	// temperature crossed the target. Devices are released; re-entry into
	// an active phase requires crossing the tolerance boundary again.
	PhaseTargetReached Phase = "target_reached"
)

// Active reports whether the phase drives devices.
func (p Phase) Active() bool {
	return p == PhaseHeating || p == PhaseCooling
}

// DeviceType distinguishes heating from cooling equipment.
type DeviceType string

const (
	DeviceHeat DeviceType = "heat"
	DeviceCool DeviceType = "cool"
)

// Mode selects how targets and tolerances are resolved.
type Mode string

const (
	// ModeOff disables all demand; every device is decided off.
	ModeOff Mode = "off"

	// ModePerRoom uses each room's own target and tolerance.
	ModePerRoom Mode = "per_room"

	// ModeGlobal uses the global target and tolerance for every room.
	ModeGlobal Mode = "global"
)

// Profile scales the tolerance band and category thresholds for more
// aggressive escalation.
type Profile string

const (
	ProfileNormal  Profile = "normal"
	ProfileFast    Profile = "fast"
	ProfileExtreme Profile = "extreme"
)

// AggregationMethod combines multiple sensor readings into one value.
type AggregationMethod string

const (
	AggregateMean   AggregationMethod = "mean"
	AggregateMin    AggregationMethod = "min"
	AggregateMax    AggregationMethod = "max"
	AggregateMedian AggregationMethod = "median"
	AggregateFirst  AggregationMethod = "first"
)

// Participation is the dumb-device participation policy.
type Participation string

const (
	// ParticipationOff means the device is never commanded on by the engine.
	ParticipationOff Participation = "off"

	// ParticipationAlwaysOn drives the device whenever its room is in a
	// matching active phase at or above the device's minimum category.
	ParticipationAlwaysOn Participation = "always_on"

	// ParticipationUntilTarget behaves like always_on but releases the
	// device the moment the room's phase becomes target_reached.
	ParticipationUntilTarget Participation = "until_reach_target"
)

// ArbitrationStrategy resolves conflicting per-room requests for shared
// devices. A single global value applies to all shared devices.
type ArbitrationStrategy string

const (
	// StrategyMaxDemand turns the device on if any requesting room has
	// demand; forwarded magnitude mirrors the largest requester.
	StrategyMaxDemand ArbitrationStrategy = "max_demand"

	// StrategyPriorityRoom follows the single configured priority room;
	// other rooms' requests are logged as unmet.
	StrategyPriorityRoom ArbitrationStrategy = "priority_room"

	// StrategyAverageRequest turns the device on when the mean magnitude
	// across requesting rooms exceeds a configured threshold.
	StrategyAverageRequest ArbitrationStrategy = "average_request"
)

// OutdoorPolicy decides weather gating when the outdoor temperature is
// unavailable. Both choices are safety-relevant, so the configuration
// must pick one explicitly.
type OutdoorPolicy string

const (
	// PolicyBlock treats weather-sensitive devices as not permitted.
	PolicyBlock OutdoorPolicy = "block"

	// PolicyAllow ignores the outdoor constraint.
	PolicyAllow OutdoorPolicy = "allow"
)

// DeviceState is the desired on/off state of an actuator.
type DeviceState string

const (
	StateOn  DeviceState = "on"
	StateOff DeviceState = "off"
)

// ActuatorCommand is the engine's output unit: one desired state change
// for one actuator, tagged with a reason for observability.
//
// Scripted actuators (dumb devices) carry the script reference that
// realises the state; climate actuators leave Script empty and are
// driven via SetDeviceState.
type ActuatorCommand struct {
	// Device is the logical actuator reference the command targets.
	// Commands are diffed across cycles by this key.
	Device string `json:"device"`

	// State is the desired on/off state.
	State DeviceState `json:"state"`

	// Script is the script reference to run for scripted actuators
	// (on-script when State is on, off-script when off). Empty for
	// climate devices.
	Script string `json:"script,omitempty"`

	// Reason tags why this command was issued (e.g. "tier_2_heating",
	// "weather_blocked", "arbitration_max_demand").
	Reason string `json:"reason"`
}

// RoomState is the engine-owned mutable state for one room. It is
// recomputed every cycle from current inputs; only Phase survives as
// hysteresis continuity. Created when a room is registered, destroyed
// when the room leaves the configuration.
type RoomState struct {
	RoomID string

	// Current is the aggregated temperature. Valid only when Available.
	Current   float64
	Available bool

	Phase     Phase
	HeatTier  int
	CoolTier  int
	Magnitude float64

	EvaluatedAt time.Time
}

// RoomStatus is the read-only per-room view exposed after each cycle.
type RoomStatus struct {
	RoomID  string `json:"room_id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	// Current is nil when no sensor reading was available this cycle.
	Current   *float64 `json:"current,omitempty"`
	Target    float64  `json:"target"`
	Tolerance float64  `json:"tolerance"`

	Phase     Phase   `json:"phase"`
	HeatTier  int     `json:"heat_tier"`
	CoolTier  int     `json:"cool_tier"`
	Magnitude float64 `json:"magnitude"`

	// ActiveDevices lists devices decided on for this room this cycle.
	ActiveDevices []string `json:"active_devices,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// GateStatus records one weather-gate decision for a weather-sensitive
// device in one room.
type GateStatus struct {
	RoomID  string `json:"room_id"`
	Device  string `json:"device"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// CycleStatus is the full read-only snapshot published after each cycle.
// It is consumed by the HTTP API and the retained MQTT status topics;
// it never feeds back into the next cycle's decisions.
type CycleStatus struct {
	CycleID string  `json:"cycle_id"`
	Mode    Mode    `json:"mode"`
	Profile Profile `json:"profile"`

	// Outdoor is nil when the outdoor temperature was unavailable.
	Outdoor *float64 `json:"outdoor,omitempty"`

	Rooms []RoomStatus `json:"rooms"`
	Gates []GateStatus `json:"gates,omitempty"`

	CommandsIssued int       `json:"commands_issued"`
	StartedAt      time.Time `json:"started_at"`
	DurationMS     int       `json:"duration_ms"`
}

// CycleRecord is the persistence view of one completed cycle.
type CycleRecord struct {
	ID             string
	StartedAt      time.Time
	DurationMS     int
	Mode           Mode
	Profile        Profile
	RoomsEvaluated int
	CommandsIssued int
	Commands       []CommandRecord
}

// CommandRecord is the persistence view of one emitted command.
type CommandRecord struct {
	ID       string
	CycleID  string
	Device   string
	State    DeviceState
	Scripted bool
	Reason   string
	IssuedAt time.Time
}
