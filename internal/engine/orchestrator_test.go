package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingLogger captures warning messages for assertion.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) warnCount(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, w := range l.warns {
		if w == msg {
			count++
		}
	}
	return count
}

func TestNewOrchestrator_InvalidConfig(t *testing.T) {
	cfg := globalModeConfig()
	cfg.Global.OutdoorPolicy = ""

	_, err := NewOrchestrator(cfg, newMockSensors(), &mockCommander{}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewOrchestrator() error = %v, want ErrInvalidConfig", err)
	}
}

func TestOrchestrator_SetMode_Invalid(t *testing.T) {
	o := newTestOrchestrator(t, globalModeConfig(), newMockSensors(), &mockCommander{})

	if err := o.SetMode("auto"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("SetMode() error = %v, want ErrInvalidMode", err)
	}
}

func TestOrchestrator_SetProfile_Invalid(t *testing.T) {
	o := newTestOrchestrator(t, globalModeConfig(), newMockSensors(), &mockCommander{})

	if err := o.SetProfile("turbo"); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("SetProfile() error = %v, want ErrInvalidProfile", err)
	}
}

func TestOrchestrator_RoomOverrides(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 20.0)
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	// 20.0 vs target 21.0 tolerance 0.5: heating.
	o.runCycle(context.Background())
	if phase := o.Status().Rooms[0].Phase; phase != PhaseHeating {
		t.Fatalf("phase = %q, want heating before override", phase)
	}

	// Lower the target below current: demand disappears once the room
	// completes its active phase.
	if err := o.SetRoomTarget("living", 19.0); err != nil {
		t.Fatalf("SetRoomTarget() error = %v", err)
	}
	o.runCycle(context.Background())
	if phase := o.Status().Rooms[0].Phase; phase != PhaseTargetReached {
		t.Errorf("phase = %q after target override, want target_reached", phase)
	}
	if target := o.Status().Rooms[0].Target; target != 19.0 {
		t.Errorf("status target = %v, want overridden 19.0", target)
	}
}

func TestOrchestrator_RoomEnableOverride(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 17.0)
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())
	if on, _ := commander.deviceState("rad-1"); !on {
		t.Fatal("rad-1 should be on before disable")
	}

	if err := o.SetRoomEnabled("living", false); err != nil {
		t.Fatalf("SetRoomEnabled() error = %v", err)
	}
	o.runCycle(context.Background())

	room := o.Status().Rooms[0]
	if room.Enabled {
		t.Error("room still reported enabled")
	}
	if room.Phase != PhaseIdle {
		t.Errorf("phase = %q, want idle for disabled room", room.Phase)
	}
	if on, _ := commander.deviceState("rad-1"); on {
		t.Error("rad-1 still on after room disabled")
	}
}

func TestOrchestrator_OverrideUnknownRoom(t *testing.T) {
	o := newTestOrchestrator(t, globalModeConfig(), newMockSensors(), &mockCommander{})

	if err := o.SetRoomTarget("attic", 20.0); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("SetRoomTarget() error = %v, want ErrRoomNotFound", err)
	}
	if err := o.SetRoomEnabled("attic", false); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("SetRoomEnabled() error = %v, want ErrRoomNotFound", err)
	}
	if err := o.ClearRoomOverrides("attic"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("ClearRoomOverrides() error = %v, want ErrRoomNotFound", err)
	}
}

func TestOrchestrator_SetRoomTolerance_Invalid(t *testing.T) {
	o := newTestOrchestrator(t, globalModeConfig(), newMockSensors(), &mockCommander{})

	if err := o.SetRoomTolerance("living", 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("SetRoomTolerance(0) error = %v, want ErrInvalidConfig", err)
	}
}

func TestOrchestrator_ClearRoomOverrides(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 20.0)
	sensors.setOutdoor(10.0)
	o := newTestOrchestrator(t, globalModeConfig(), sensors, &mockCommander{})

	if err := o.SetRoomTarget("living", 18.0); err != nil {
		t.Fatalf("SetRoomTarget() error = %v", err)
	}
	o.runCycle(context.Background())
	if target := o.Status().Rooms[0].Target; target != 18.0 {
		t.Fatalf("target = %v, want 18.0", target)
	}

	if err := o.ClearRoomOverrides("living"); err != nil {
		t.Fatalf("ClearRoomOverrides() error = %v", err)
	}
	o.runCycle(context.Background())
	if target := o.Status().Rooms[0].Target; target != 21.0 {
		t.Errorf("target = %v after clear, want configured 21.0", target)
	}
}

func TestOrchestrator_UpdateConfig(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 19.5)
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)

	o.runCycle(context.Background())

	// Replace with a config whose only room is new: old state pruned.
	next := globalModeConfig()
	next.Rooms[0].ID = "kitchen"
	next.Rooms[0].Sensors = []string{"t-kitchen"}
	if err := o.UpdateConfig(next); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	sensors.set("t-kitchen", 19.5)
	o.runCycle(context.Background())

	status := o.Status()
	if len(status.Rooms) != 1 || status.Rooms[0].RoomID != "kitchen" {
		t.Errorf("rooms after config swap = %+v, want single kitchen", status.Rooms)
	}
	if _, err := o.RoomStatus("living"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("RoomStatus(living) error = %v, want ErrRoomNotFound", err)
	}
}

func TestOrchestrator_UpdateConfig_Invalid(t *testing.T) {
	o := newTestOrchestrator(t, globalModeConfig(), newMockSensors(), &mockCommander{})

	bad := globalModeConfig()
	bad.Global.HeatThresholds = TierThresholds{Tier2: 3.0, Tier3: 2.0}

	if err := o.UpdateConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("UpdateConfig() error = %v, want ErrInvalidConfig", err)
	}

	// The previous configuration stays active.
	active := o.cfg
	if active.Global.HeatThresholds.Tier3 != 3.5 {
		t.Error("invalid config replaced the active one")
	}
}

// TestOrchestrator_UndeclaredSharedWarnsOncePerConfig: a device named
// by two rooms without a shared_devices declaration is flagged when the
// configuration lands, not again on every cycle.
func TestOrchestrator_UndeclaredSharedWarnsOncePerConfig(t *testing.T) {
	cfg := validZonesConfig(t)
	cfg.Rooms[0].Heat.Category1 = append(cfg.Rooms[0].Heat.Category1, "radiator-bedroom")

	sensors := newMockSensors()
	sensors.setOutdoor(10.0)
	sensors.set("temp-living-north", 19.0)
	sensors.set("temp-living-south", 19.0)
	sensors.set("temp-bedroom", 17.0)

	logger := &recordingLogger{}
	o, err := NewOrchestrator(cfg, sensors, &mockCommander{}, logger)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	const msg = "device referenced by multiple rooms without shared declaration"
	if got := logger.warnCount(msg); got != 1 {
		t.Fatalf("warnings after construction = %d, want 1", got)
	}

	o.runCycle(context.Background())
	o.runCycle(context.Background())
	if got := logger.warnCount(msg); got != 1 {
		t.Errorf("warnings after cycles = %d, want still 1", got)
	}

	// A config swap re-evaluates and re-warns exactly once.
	next := validZonesConfig(t)
	next.Rooms[0].Heat.Category1 = append(next.Rooms[0].Heat.Category1, "radiator-bedroom")
	if err := o.UpdateConfig(next); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if got := logger.warnCount(msg); got != 2 {
		t.Errorf("warnings after config swap = %d, want 2", got)
	}
}

func TestOrchestrator_RoomStatus(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 19.5)
	sensors.setOutdoor(10.0)
	o := newTestOrchestrator(t, globalModeConfig(), sensors, &mockCommander{})

	o.runCycle(context.Background())

	room, err := o.RoomStatus("living")
	if err != nil {
		t.Fatalf("RoomStatus() error = %v", err)
	}
	if room.RoomID != "living" {
		t.Errorf("room id = %q, want living", room.RoomID)
	}
	if room.Current == nil || *room.Current != 19.5 {
		t.Errorf("current = %v, want 19.5", room.Current)
	}
}

func TestOrchestrator_Trigger_NonBlocking(t *testing.T) {
	o := newTestOrchestrator(t, globalModeConfig(), newMockSensors(), &mockCommander{})

	// Repeated triggers with no running loop must coalesce, not block.
	for i := 0; i < 10; i++ {
		o.Trigger()
	}
}

func TestOrchestrator_Run_CancelStops(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 19.5)
	sensors.setOutdoor(10.0)
	commander := &mockCommander{}
	o := newTestOrchestrator(t, globalModeConfig(), sensors, commander)
	o.SetInterval(10 * time.Millisecond)
	o.SetDebounce(0)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- o.Run(ctx)
	}()

	// Give the loop time for the initial cycle, then stop it.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if commander.callCount() == 0 {
		t.Error("no commands emitted by the running loop")
	}
}

func TestOrchestrator_OnCycleCallback(t *testing.T) {
	sensors := newMockSensors()
	sensors.set("t-living", 19.5)
	sensors.setOutdoor(10.0)
	o := newTestOrchestrator(t, globalModeConfig(), sensors, &mockCommander{})

	var got []CycleStatus
	o.SetOnCycle(func(s CycleStatus) {
		got = append(got, s)
	})

	o.runCycle(context.Background())

	if len(got) != 1 {
		t.Fatalf("onCycle invoked %d times, want 1", len(got))
	}
	if got[0].CycleID == "" {
		t.Error("cycle status missing cycle id")
	}
	if got[0].Mode != ModeGlobal {
		t.Errorf("cycle status mode = %q, want global", got[0].Mode)
	}
}
