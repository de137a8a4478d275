package engine

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Default profile factors. Tolerance factors narrow the hysteresis band;
// threshold factors lower the tier-2/3 activation thresholds.
var defaultProfiles = map[Profile]ProfileFactors{
	ProfileNormal:  {Tolerance: 1.0, Threshold: 1.0},
	ProfileFast:    {Tolerance: 0.6, Threshold: 0.75},
	ProfileExtreme: {Tolerance: 0.3, Threshold: 0.5},
}

// ZonesConfig is the engine's room/device configuration, loaded from the
// zones YAML file. It is immutable once loaded: configuration changes
// replace the whole value atomically between cycles.
type ZonesConfig struct {
	Global        GlobalConfig         `yaml:"global"`
	Rooms         []RoomConfig         `yaml:"rooms"`
	SharedDevices []SharedDeviceConfig `yaml:"shared_devices"`
}

// GlobalConfig holds installation-wide engine settings.
type GlobalConfig struct {
	// Mode selects target resolution: off, per_room, or global.
	Mode Mode `yaml:"mode"`

	// Profile scales tolerance and thresholds: normal, fast, or extreme.
	Profile Profile `yaml:"profile"`

	// Target and Tolerance apply to every room when Mode is global.
	Target    float64 `yaml:"target"`
	Tolerance float64 `yaml:"tolerance"`

	// HeatThresholds and CoolThresholds are the demand magnitudes that
	// activate tier 2 and tier 3 for each device type.
	HeatThresholds TierThresholds `yaml:"heat_thresholds"`
	CoolThresholds TierThresholds `yaml:"cool_thresholds"`

	// OutdoorSafeRange bounds weather-sensitive operation: heating-type
	// devices require outdoor >= Low, cooling-type require outdoor <= High.
	OutdoorSafeRange SafeRange `yaml:"outdoor_safe_range"`

	// OutdoorPolicy decides gating when the outdoor reading is missing.
	// Required: block or allow, no default.
	OutdoorPolicy OutdoorPolicy `yaml:"outdoor_policy"`

	// OutdoorSensor is the sensor reference for outdoor temperature.
	OutdoorSensor string `yaml:"outdoor_sensor"`

	// Arbitration configures shared-device conflict resolution.
	Arbitration ArbitrationConfig `yaml:"arbitration"`

	// Profiles overrides the built-in profile factors. Unlisted profiles
	// keep their defaults.
	Profiles map[Profile]ProfileFactors `yaml:"profiles"`
}

// TierThresholds are the cumulative tier activation boundaries.
// Tier 1 activates with any demand; tiers 2 and 3 at these magnitudes.
type TierThresholds struct {
	Tier2 float64 `yaml:"tier2"`
	Tier3 float64 `yaml:"tier3"`
}

// SafeRange is the outdoor temperature range within which
// weather-sensitive devices may operate.
type SafeRange struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// ProfileFactors scale the tolerance band and tier thresholds.
type ProfileFactors struct {
	Tolerance float64 `yaml:"tolerance"`
	Threshold float64 `yaml:"threshold"`
}

// ArbitrationConfig selects and parameterises the shared-device strategy.
type ArbitrationConfig struct {
	Strategy ArbitrationStrategy `yaml:"strategy"`

	// PriorityRoom is required for the priority_room strategy.
	PriorityRoom string `yaml:"priority_room"`

	// AverageThreshold is the mean-magnitude cutoff for average_request.
	AverageThreshold float64 `yaml:"average_threshold"`
}

// RoomConfig describes one controlled room.
type RoomConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Enabled defaults to true; a disabled room behaves as mode off.
	Enabled *bool `yaml:"enabled"`

	// Sensors lists temperature sensor references, aggregated per cycle.
	Sensors []string `yaml:"sensors"`

	// Aggregation defaults to mean.
	Aggregation AggregationMethod `yaml:"aggregation"`

	// Target and Tolerance apply when Mode is per_room.
	Target    float64 `yaml:"target"`
	Tolerance float64 `yaml:"tolerance"`

	// Heat and Cool are the category-1/2/3 device lists per device type.
	Heat CategoryDevices `yaml:"heat"`
	Cool CategoryDevices `yaml:"cool"`

	// WeatherSensitive lists device references gated on outdoor temperature.
	WeatherSensitive []string `yaml:"weather_sensitive"`

	// DumbDevices are scripted actuators with participation policies.
	DumbDevices []DumbDeviceConfig `yaml:"dumb_devices"`
}

// IsEnabled reports the room's enable switch, defaulting to true.
func (r *RoomConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// CategoryDevices holds the cumulative tier device lists for one
// device type in one room.
type CategoryDevices struct {
	Category1 []string `yaml:"category1"`
	Category2 []string `yaml:"category2"`
	Category3 []string `yaml:"category3"`
}

// DumbDeviceConfig describes a scripted on/off actuator. Both script
// references are mandatory; a device missing either is rejected at load.
type DumbDeviceConfig struct {
	ID            string        `yaml:"id"`
	Type          DeviceType    `yaml:"type"`
	OnScript      string        `yaml:"on_script"`
	OffScript     string        `yaml:"off_script"`
	Participation Participation `yaml:"participation"`
	MinCategory   int           `yaml:"min_category"`
}

// SharedDeviceConfig declares a device referenced by multiple rooms'
// category lists, requiring arbitration.
type SharedDeviceConfig struct {
	Device string   `yaml:"device"`
	Rooms  []string `yaml:"rooms"`
}

// LoadZones reads and validates the zones configuration file.
//
// Parameters:
//   - path: Path to the zones YAML file
//
// Returns:
//   - *ZonesConfig: Validated configuration
//   - error: Wrapping ErrInvalidConfig on any validation failure
func LoadZones(path string) (*ZonesConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from service config
	if err != nil {
		return nil, fmt.Errorf("reading zones file: %w", err)
	}

	var cfg ZonesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing zones file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills optional fields before validation.
func (c *ZonesConfig) applyDefaults() {
	if c.Global.Mode == "" {
		c.Global.Mode = ModePerRoom
	}
	if c.Global.Profile == "" {
		c.Global.Profile = ProfileNormal
	}
	for i := range c.Rooms {
		if c.Rooms[i].Aggregation == "" {
			c.Rooms[i].Aggregation = AggregateMean
		}
	}
}

// Validate checks the configuration for correctness. An engine never
// starts (or swaps to) a configuration that fails validation.
//
//nolint:gocognit,gocyclo // validation is a flat list of field checks
func (c *ZonesConfig) Validate() error {
	if !validMode(c.Global.Mode) {
		return fmt.Errorf("%w: global.mode must be off, per_room, or global (got %q)", ErrInvalidConfig, c.Global.Mode)
	}
	if !validProfile(c.Global.Profile) {
		return fmt.Errorf("%w: global.profile must be normal, fast, or extreme (got %q)", ErrInvalidConfig, c.Global.Profile)
	}
	// Tolerances are validated for every mode, not just the configured
	// one: a runtime mode override can switch target resolution without
	// passing through validation again.
	if c.Global.Tolerance <= 0 {
		return fmt.Errorf("%w: global.tolerance must be positive", ErrInvalidConfig)
	}
	if err := validateThresholds("heat", c.Global.HeatThresholds); err != nil {
		return err
	}
	if err := validateThresholds("cool", c.Global.CoolThresholds); err != nil {
		return err
	}
	if c.Global.OutdoorPolicy != PolicyBlock && c.Global.OutdoorPolicy != PolicyAllow {
		return fmt.Errorf("%w: global.outdoor_policy is required (block or allow)", ErrInvalidConfig)
	}
	if c.Global.OutdoorSafeRange.Low > c.Global.OutdoorSafeRange.High {
		return fmt.Errorf("%w: global.outdoor_safe_range low > high", ErrInvalidConfig)
	}
	for p, f := range c.Global.Profiles {
		if !validProfile(p) {
			return fmt.Errorf("%w: unknown profile %q in profile factors", ErrInvalidConfig, p)
		}
		if f.Tolerance <= 0 || f.Threshold <= 0 {
			return fmt.Errorf("%w: profile %q factors must be positive", ErrInvalidConfig, p)
		}
	}

	if err := c.validateArbitration(); err != nil {
		return err
	}

	if len(c.Rooms) == 0 {
		return fmt.Errorf("%w: at least one room is required", ErrInvalidConfig)
	}

	roomIDs := make(map[string]bool, len(c.Rooms))
	for i := range c.Rooms {
		room := &c.Rooms[i]
		if room.ID == "" {
			return fmt.Errorf("%w: room %d has no id", ErrInvalidConfig, i)
		}
		if roomIDs[room.ID] {
			return fmt.Errorf("%w: duplicate room id %q", ErrInvalidConfig, room.ID)
		}
		roomIDs[room.ID] = true

		if len(room.Sensors) == 0 {
			return fmt.Errorf("%w: room %q has no sensors", ErrInvalidConfig, room.ID)
		}
		if !validAggregation(room.Aggregation) {
			return fmt.Errorf("%w: room %q aggregation %q unknown", ErrInvalidConfig, room.ID, room.Aggregation)
		}
		if room.Tolerance <= 0 {
			return fmt.Errorf("%w: room %q tolerance must be positive", ErrInvalidConfig, room.ID)
		}

		for j := range room.DumbDevices {
			if err := validateDumbDevice(room.ID, &room.DumbDevices[j]); err != nil {
				return err
			}
		}
	}

	for i := range c.SharedDevices {
		sd := &c.SharedDevices[i]
		if sd.Device == "" {
			return fmt.Errorf("%w: shared device %d has no device reference", ErrInvalidConfig, i)
		}
		if len(sd.Rooms) < 2 {
			return fmt.Errorf("%w: shared device %q must list at least 2 rooms", ErrInvalidConfig, sd.Device)
		}
		members := make(map[string]bool, len(sd.Rooms))
		for _, roomID := range sd.Rooms {
			if !roomIDs[roomID] {
				return fmt.Errorf("%w: shared device %q references unknown room %q", ErrInvalidConfig, sd.Device, roomID)
			}
			members[roomID] = true
		}
		// Arbitration only polls declared members: a room using the
		// device outside the membership list would have its requests
		// silently dropped.
		for j := range c.Rooms {
			room := &c.Rooms[j]
			if members[room.ID] || !roomReferencesDevice(room, sd.Device) {
				continue
			}
			return fmt.Errorf("%w: room %q references shared device %q but is not listed in its rooms",
				ErrInvalidConfig, room.ID, sd.Device)
		}
	}

	if c.Global.Arbitration.Strategy == StrategyPriorityRoom && !roomIDs[c.Global.Arbitration.PriorityRoom] {
		return fmt.Errorf("%w: arbitration priority_room %q is not a configured room", ErrInvalidConfig, c.Global.Arbitration.PriorityRoom)
	}

	return nil
}

func (c *ZonesConfig) validateArbitration() error {
	a := c.Global.Arbitration
	switch a.Strategy {
	case StrategyMaxDemand:
	case StrategyPriorityRoom:
		if a.PriorityRoom == "" {
			return fmt.Errorf("%w: arbitration strategy priority_room requires a priority room", ErrInvalidConfig)
		}
	case StrategyAverageRequest:
		if a.AverageThreshold <= 0 {
			return fmt.Errorf("%w: arbitration strategy average_request requires a positive threshold", ErrInvalidConfig)
		}
	case "":
		if len(c.SharedDevices) > 0 {
			return fmt.Errorf("%w: arbitration strategy is required when shared devices are configured", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown arbitration strategy %q", ErrInvalidConfig, a.Strategy)
	}
	return nil
}

func validateThresholds(deviceType string, t TierThresholds) error {
	if t.Tier2 < 0 || t.Tier3 < 0 {
		return fmt.Errorf("%w: %s thresholds must be non-negative", ErrInvalidConfig, deviceType)
	}
	if t.Tier3 < t.Tier2 {
		return fmt.Errorf("%w: %s tier3 threshold (%.2f) must be >= tier2 threshold (%.2f)",
			ErrInvalidConfig, deviceType, t.Tier3, t.Tier2)
	}
	return nil
}

func validateDumbDevice(roomID string, d *DumbDeviceConfig) error {
	if d.ID == "" {
		return fmt.Errorf("%w: room %q has a dumb device without an id", ErrInvalidConfig, roomID)
	}
	if d.Type != DeviceHeat && d.Type != DeviceCool {
		return fmt.Errorf("%w: dumb device %q type must be heat or cool", ErrInvalidConfig, d.ID)
	}
	// Both scripts are mandatory: a device the engine can turn on but not
	// off (or vice versa) is rejected, not silently ignored.
	if d.OnScript == "" || d.OffScript == "" {
		return fmt.Errorf("%w: dumb device %q requires both on_script and off_script", ErrInvalidConfig, d.ID)
	}
	switch d.Participation {
	case ParticipationOff, ParticipationAlwaysOn, ParticipationUntilTarget:
	default:
		return fmt.Errorf("%w: dumb device %q participation %q unknown", ErrInvalidConfig, d.ID, d.Participation)
	}
	if d.MinCategory < 0 || d.MinCategory > 3 {
		return fmt.Errorf("%w: dumb device %q min_category must be 0-3", ErrInvalidConfig, d.ID)
	}
	return nil
}

// roomReferencesDevice reports whether a room's category lists name
// the device, for either device type.
func roomReferencesDevice(room *RoomConfig, device string) bool {
	for _, dev := range allDevices(room.Heat) {
		if dev == device {
			return true
		}
	}
	for _, dev := range allDevices(room.Cool) {
		if dev == device {
			return true
		}
	}
	return false
}

// Room returns the room config with the given ID, or nil.
func (c *ZonesConfig) Room(id string) *RoomConfig {
	for i := range c.Rooms {
		if c.Rooms[i].ID == id {
			return &c.Rooms[i]
		}
	}
	return nil
}

// ProfileFactors resolves the factors for a profile, falling back to
// the built-in defaults for profiles not overridden in configuration.
func (c *ZonesConfig) ProfileFactors(p Profile) ProfileFactors {
	if f, ok := c.Global.Profiles[p]; ok {
		return f
	}
	if f, ok := defaultProfiles[p]; ok {
		return f
	}
	return defaultProfiles[ProfileNormal]
}

// sharedDeviceSet returns the set of device references under arbitration.
func (c *ZonesConfig) sharedDeviceSet() map[string]bool {
	set := make(map[string]bool, len(c.SharedDevices))
	for i := range c.SharedDevices {
		set[c.SharedDevices[i].Device] = true
	}
	return set
}

// undeclaredSharedDevices returns devices named in more than one room's
// category lists without a shared_devices declaration. The engine
// tolerates these (on wins during the merge) but they are a
// misconfiguration worth flagging once when the configuration lands.
func (c *ZonesConfig) undeclaredSharedDevices() []string {
	shared := c.sharedDeviceSet()
	count := make(map[string]int)
	for i := range c.Rooms {
		room := &c.Rooms[i]
		seen := make(map[string]bool)
		for _, dev := range allDevices(room.Heat) {
			seen[dev] = true
		}
		for _, dev := range allDevices(room.Cool) {
			seen[dev] = true
		}
		for dev := range seen {
			count[dev]++
		}
	}

	var dup []string
	for dev, rooms := range count {
		if rooms > 1 && !shared[dev] {
			dup = append(dup, dev)
		}
	}
	sort.Strings(dup)
	return dup
}

func validMode(m Mode) bool {
	return m == ModeOff || m == ModePerRoom || m == ModeGlobal
}

func validProfile(p Profile) bool {
	return p == ProfileNormal || p == ProfileFast || p == ProfileExtreme
}

func validAggregation(a AggregationMethod) bool {
	switch a {
	case AggregateMean, AggregateMin, AggregateMax, AggregateMedian, AggregateFirst:
		return true
	}
	return false
}
