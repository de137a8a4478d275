package engine

import (
	"context"
	"sort"
	"sync"
	"testing"
)

// mockSensors is a last-known-value store under test control.
type mockSensors struct {
	mu      sync.Mutex
	temps   map[string]float64
	outdoor *float64
}

func newMockSensors() *mockSensors {
	return &mockSensors{temps: make(map[string]float64)}
}

func (m *mockSensors) set(ref string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temps[ref] = value
}

func (m *mockSensors) clear(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.temps, ref)
}

func (m *mockSensors) setOutdoor(value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outdoor = &value
}

func (m *mockSensors) ReadTemperature(ref string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.temps[ref]
	return v, ok
}

func (m *mockSensors) ReadOutdoorTemperature() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outdoor == nil {
		return 0, false
	}
	return *m.outdoor, true
}

// mockCommander records emitted commands.
type mockCommander struct {
	mu      sync.Mutex
	devices []deviceCall
	scripts []scriptCall
}

type deviceCall struct {
	device string
	on     bool
	reason string
}

type scriptCall struct {
	script string
	reason string
}

func (m *mockCommander) SetDeviceState(device string, on bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, deviceCall{device, on, reason})
}

func (m *mockCommander) RunScript(script string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, scriptCall{script, reason})
}

func (m *mockCommander) deviceState(device string) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.devices) - 1; i >= 0; i-- {
		if m.devices[i].device == device {
			return m.devices[i].on, true
		}
	}
	return false, false
}

func (m *mockCommander) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices) + len(m.scripts)
}

func (m *mockCommander) lastScript() (scriptCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scripts) == 0 {
		return scriptCall{}, false
	}
	return m.scripts[len(m.scripts)-1], true
}

// globalModeConfig is a single-room configuration in global mode with
// the scenario values target 21.0, tolerance 0.5, thresholds (2.0, 3.5).
func globalModeConfig() *ZonesConfig {
	return &ZonesConfig{
		Global: GlobalConfig{
			Mode:             ModeGlobal,
			Profile:          ProfileNormal,
			Target:           21.0,
			Tolerance:        0.5,
			HeatThresholds:   TierThresholds{Tier2: 2.0, Tier3: 3.5},
			CoolThresholds:   TierThresholds{Tier2: 2.0, Tier3: 3.5},
			OutdoorSafeRange: SafeRange{Low: -10, High: 40},
			OutdoorPolicy:    PolicyBlock,
		},
		Rooms: []RoomConfig{
			{
				ID:          "living",
				Name:        "Living Room",
				Sensors:     []string{"t-living"},
				Aggregation: AggregateMean,
				Target:      21.0,
				Tolerance:   0.5,
				Heat: CategoryDevices{
					Category1: []string{"rad-1"},
					Category2: []string{"rad-2"},
					Category3: []string{"rad-3"},
				},
				Cool: CategoryDevices{
					Category1: []string{"ac-1"},
				},
				WeatherSensitive: []string{"ac-1"},
				DumbDevices: []DumbDeviceConfig{
					{
						ID:            "heater-floor",
						Type:          DeviceHeat,
						OnScript:      "script-floor-on",
						OffScript:     "script-floor-off",
						Participation: ParticipationUntilTarget,
						MinCategory:   2,
					},
				},
			},
		},
	}
}

func newTestOrchestrator(t *testing.T, cfg *ZonesConfig, sensors *mockSensors, commander *mockCommander) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(cfg, sensors, commander, noopLogger{})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

// TestRunCycle_HeatingTier1 runs the reference scenario: global mode,
// target 21.0, tolerance 0.5, current 19.5 → delta -1.5 → heating,
// magnitude 1.5, tier 1 only.
func TestRunCycle_HeatingTier1(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 19.5)
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())

	status := o.Status()
	if len(status.Rooms) != 1 {
		t.Fatalf("rooms in status = %d, want 1", len(status.Rooms))
	}
	room := status.Rooms[0]
	if room.Phase != PhaseHeating {
		t.Errorf("phase = %q, want heating", room.Phase)
	}
	if !almostEqual(room.Magnitude, 1.5) {
		t.Errorf("magnitude = %v, want 1.5", room.Magnitude)
	}
	if room.HeatTier != 1 {
		t.Errorf("heat tier = %d, want 1", room.HeatTier)
	}

	// Category-1 device on, higher categories off.
	if on, ok := commander.deviceState("rad-1"); !ok || !on {
		t.Errorf("rad-1 commanded %v/%v, want on", on, ok)
	}
	for _, dev := range []string{"rad-2", "rad-3", "ac-1"} {
		if on, ok := commander.deviceState(dev); !ok || on {
			t.Errorf("%s commanded %v/%v, want off", dev, on, ok)
		}
	}
}

// TestRunCycle_Idempotent re-runs a cycle with identical inputs and
// unchanged phases: zero additional commands.
func TestRunCycle_Idempotent(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 19.5)
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())
	after := commander.callCount()

	o.runCycle(context.Background())

	if commander.callCount() != after {
		t.Errorf("second cycle emitted %d extra commands, want 0", commander.callCount()-after)
	}
	if got := o.Status().CommandsIssued; got != 0 {
		t.Errorf("CommandsIssued = %d, want 0", got)
	}
}

func TestRunCycle_TierEscalation(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 17.0) // delta -4.0 >= tier3 threshold 3.5
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())

	room := o.Status().Rooms[0]
	if room.HeatTier != 3 {
		t.Fatalf("heat tier = %d, want 3", room.HeatTier)
	}
	for _, dev := range []string{"rad-1", "rad-2", "rad-3"} {
		if on, ok := commander.deviceState(dev); !ok || !on {
			t.Errorf("%s commanded %v/%v, want on at tier 3", dev, on, ok)
		}
	}
}

func TestRunCycle_SensorUnavailable(t *testing.T) {
	sensors := newMockSensors() // no readings at all
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())

	room := o.Status().Rooms[0]
	if room.Phase != PhaseIdle {
		t.Errorf("phase = %q, want idle when sensors unavailable", room.Phase)
	}
	if room.Current != nil {
		t.Errorf("current = %v, want nil", *room.Current)
	}
	for _, dev := range []string{"rad-1", "rad-2", "rad-3", "ac-1"} {
		if on, ok := commander.deviceState(dev); !ok || on {
			t.Errorf("%s commanded %v/%v, want off", dev, on, ok)
		}
	}
}

// TestRunCycle_WeatherBlocked: cooling demand with the outdoor reading
// unavailable under policy block → the weather-sensitive AC stays off
// and the gate decision is reported.
func TestRunCycle_WeatherBlocked(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 24.0) // delta +3.0: cooling demand
	// outdoor left unavailable
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())

	status := o.Status()
	if status.Rooms[0].Phase != PhaseCooling {
		t.Fatalf("phase = %q, want cooling", status.Rooms[0].Phase)
	}
	if on, ok := commander.deviceState("ac-1"); !ok || on {
		t.Errorf("ac-1 commanded %v/%v, want off under block policy", on, ok)
	}

	found := false
	for _, gate := range status.Gates {
		if gate.Device == "ac-1" {
			found = true
			if gate.Allowed {
				t.Error("gate for ac-1 allowed, want blocked")
			}
		}
	}
	if !found {
		t.Error("no gate decision reported for ac-1")
	}
}

func TestRunCycle_WeatherAllowed(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 24.0)
	sensors.setOutdoor(30.0) // within safe range high 40
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())

	if on, ok := commander.deviceState("ac-1"); !ok || !on {
		t.Errorf("ac-1 commanded %v/%v, want on within safe range", on, ok)
	}
}

// TestRunCycle_DumbDeviceLifecycle drives the until_reach_target device
// (min category 2) through escalation and release.
func TestRunCycle_DumbDeviceLifecycle(t *testing.T) {
	sensors := newMockSensors()
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	// Tier 1: below the device's min category, off script on first cycle.
	sensors.set("t-living", 19.5)
	o.runCycle(context.Background())
	if sc, ok := commander.lastScript(); !ok || sc.script != "script-floor-off" {
		t.Fatalf("last script = %+v, want initial script-floor-off", sc)
	}

	// Demand deepens to tier 2: on script.
	sensors.set("t-living", 18.5)
	o.runCycle(context.Background())
	if sc, ok := commander.lastScript(); !ok || sc.script != "script-floor-on" {
		t.Fatalf("last script = %+v, want script-floor-on at tier 2", sc)
	}

	// Target reached: released immediately.
	sensors.set("t-living", 21.0)
	o.runCycle(context.Background())
	if sc, ok := commander.lastScript(); !ok || sc.script != "script-floor-off" {
		t.Fatalf("last script = %+v, want script-floor-off at target_reached", sc)
	}
	if o.Status().Rooms[0].Phase != PhaseTargetReached {
		t.Errorf("phase = %q, want target_reached", o.Status().Rooms[0].Phase)
	}
}

func TestRunCycle_ModeOff(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 17.0)
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())
	if on, _ := commander.deviceState("rad-1"); !on {
		t.Fatal("rad-1 should be on before mode off")
	}

	if err := o.SetMode(ModeOff); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	o.runCycle(context.Background())

	// Mode off still cycles so previously commanded devices get released.
	for _, dev := range []string{"rad-1", "rad-2", "rad-3", "ac-1"} {
		if on, ok := commander.deviceState(dev); !ok || on {
			t.Errorf("%s commanded %v/%v, want off in mode off", dev, on, ok)
		}
	}
	if o.Status().Rooms[0].Phase != PhaseIdle {
		t.Errorf("phase = %q, want idle in mode off", o.Status().Rooms[0].Phase)
	}
}

// TestRunCycle_SharedMaxDemand builds two rooms sharing one tier-3
// device: on while any member requests, off when no room does.
func TestRunCycle_SharedMaxDemand(t *testing.T) {
	cfg := validZonesConfig(t)
	sensors := newMockSensors()
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, cfg, sensors, commander)

	// Living (target 21.0, thresholds 2.0/3.5): current 17.0 → tier 3.
	// Bedroom (target 19.0): current 15.0 → tier 3. Both request hvac-shared.
	sensors.set("temp-living-north", 17.0)
	sensors.set("temp-living-south", 17.0)
	sensors.set("temp-bedroom", 15.0)
	o.runCycle(context.Background())

	if on, ok := commander.deviceState("hvac-shared"); !ok || !on {
		t.Fatalf("hvac-shared commanded %v/%v, want on with requesting rooms", on, ok)
	}

	// Both rooms reach target: no requests, device released.
	sensors.set("temp-living-north", 21.2)
	sensors.set("temp-living-south", 21.2)
	sensors.set("temp-bedroom", 19.1)
	o.runCycle(context.Background())

	if on, ok := commander.deviceState("hvac-shared"); !ok || on {
		t.Errorf("hvac-shared commanded %v/%v, want off with no requests", on, ok)
	}
}

// TestRunCycle_ModeOverrideGlobal switches a per_room configuration to
// global mode at runtime: the validated global target and tolerance
// take over, so rooms sitting on the global target stay idle.
func TestRunCycle_ModeOverrideGlobal(t *testing.T) {
	cfg := validZonesConfig(t) // per_room, global target 21.0 tolerance 0.5
	sensors := newMockSensors()
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, cfg, sensors, commander)

	// Both rooms sit exactly on the global target.
	sensors.set("temp-living-north", 21.0)
	sensors.set("temp-living-south", 21.0)
	sensors.set("temp-bedroom", 21.0)

	if err := o.SetMode(ModeGlobal); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	o.runCycle(context.Background())

	status := o.Status()
	if status.Mode != ModeGlobal {
		t.Fatalf("mode = %q, want global", status.Mode)
	}
	for _, room := range status.Rooms {
		if room.Target != 21.0 || room.Tolerance != 0.5 {
			t.Errorf("room %s target/tolerance = %v/%v, want global 21.0/0.5",
				room.RoomID, room.Target, room.Tolerance)
		}
		if room.Phase != PhaseIdle {
			t.Errorf("room %s phase = %q, want idle at global target", room.RoomID, room.Phase)
		}
		if room.HeatTier != 0 || room.CoolTier != 0 {
			t.Errorf("room %s tiers = %d/%d, want 0/0", room.RoomID, room.HeatTier, room.CoolTier)
		}
	}
}

// TestRunCycle_ActiveDevicesSorted: shared devices join a room's active
// list during arbitration, after the room itself was evaluated; the
// reported list must be sorted regardless.
func TestRunCycle_ActiveDevicesSorted(t *testing.T) {
	cfg := validZonesConfig(t)
	sensors := newMockSensors()
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, cfg, sensors, commander)

	// Deep heating demand in both rooms: tier 3 everywhere, so the
	// shared tier-3 device is requested and granted.
	sensors.set("temp-living-north", 17.0)
	sensors.set("temp-living-south", 17.0)
	sensors.set("temp-bedroom", 15.0)
	o.runCycle(context.Background())

	for _, room := range o.Status().Rooms {
		if !sort.StringsAreSorted(room.ActiveDevices) {
			t.Errorf("room %s active devices %v not sorted", room.RoomID, room.ActiveDevices)
		}
	}

	living, err := o.RoomStatus("living")
	if err != nil {
		t.Fatalf("RoomStatus() error = %v", err)
	}
	want := []string{"heater-floor", "hvac-shared", "radiator-living", "underfloor-living"}
	if len(living.ActiveDevices) != len(want) {
		t.Fatalf("living active devices = %v, want %v", living.ActiveDevices, want)
	}
	for i := range want {
		if living.ActiveDevices[i] != want[i] {
			t.Fatalf("living active devices = %v, want %v", living.ActiveDevices, want)
		}
	}
}

func TestRunCycle_ProfileScalesTolerance(t *testing.T) {
	cfg := globalModeConfig()
	sensors := newMockSensors()
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, cfg, sensors, commander)

	// delta -0.4 is inside the normal band (0.5): idle.
	sensors.set("t-living", 20.6)
	o.runCycle(context.Background())
	if phase := o.Status().Rooms[0].Phase; phase != PhaseIdle {
		t.Fatalf("phase = %q under normal profile, want idle", phase)
	}

	// Extreme narrows tolerance to 0.5*0.3 = 0.15: the same delta now
	// triggers heating.
	if err := o.SetProfile(ProfileExtreme); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}
	o.runCycle(context.Background())
	if phase := o.Status().Rooms[0].Phase; phase != PhaseHeating {
		t.Errorf("phase = %q under extreme profile, want heating", phase)
	}
}
