package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/zone-climate-core/internal/engine"
	"github.com/nerrad567/zone-climate-core/internal/infrastructure/database"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db.DB)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	return repo
}

func sampleCycle(id string, startedAt time.Time) engine.CycleRecord {
	return engine.CycleRecord{
		ID:             id,
		StartedAt:      startedAt,
		DurationMS:     12,
		Mode:           engine.ModePerRoom,
		Profile:        engine.ProfileNormal,
		RoomsEvaluated: 2,
		CommandsIssued: 2,
		Commands: []engine.CommandRecord{
			{
				ID:       id + "-cmd-1",
				CycleID:  id,
				Device:   "radiator-living",
				State:    engine.StateOn,
				Reason:   "tier_1_heat",
				IssuedAt: startedAt,
			},
			{
				ID:       id + "-cmd-2",
				CycleID:  id,
				Device:   "heater-floor",
				State:    engine.StateOff,
				Scripted: true,
				Reason:   "target_reached",
				IssuedAt: startedAt.Add(time.Millisecond),
			},
		},
	}
}

func TestRecordCycle_RoundTrip(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	if err := repo.RecordCycle(ctx, sampleCycle("cycle-1", started)); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}

	cycles, err := repo.ListCycles(ctx, 10)
	if err != nil {
		t.Fatalf("ListCycles() error = %v", err)
	}
	if len(cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(cycles))
	}
	got := cycles[0]
	if got.ID != "cycle-1" || got.Mode != engine.ModePerRoom || got.CommandsIssued != 2 {
		t.Errorf("cycle = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}

	commands, err := repo.ListCommands(ctx, "cycle-1")
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(commands))
	}
	if commands[0].Device != "radiator-living" || commands[0].State != engine.StateOn {
		t.Errorf("first command = %+v", commands[0])
	}
	if !commands[1].Scripted {
		t.Error("second command should be scripted")
	}
}

func TestRecordCycle_MissingID(t *testing.T) {
	repo := setupRepository(t)

	err := repo.RecordCycle(context.Background(), engine.CycleRecord{})
	if err == nil {
		t.Fatal("RecordCycle() should fail without an id")
	}
}

func TestListCycles_NewestFirst(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "middle", "new"} {
		cycle := sampleCycle(id, base.Add(time.Duration(i)*time.Minute))
		cycle.Commands = nil
		if err := repo.RecordCycle(ctx, cycle); err != nil {
			t.Fatalf("RecordCycle(%s) error = %v", id, err)
		}
	}

	cycles, err := repo.ListCycles(ctx, 2)
	if err != nil {
		t.Fatalf("ListCycles() error = %v", err)
	}
	if len(cycles) != 2 {
		t.Fatalf("cycles = %d, want 2 (limit)", len(cycles))
	}
	if cycles[0].ID != "new" || cycles[1].ID != "middle" {
		t.Errorf("order = [%s, %s], want [new, middle]", cycles[0].ID, cycles[1].ID)
	}
}

func TestDeviceHistory(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	base := time.Now().UTC()
	if err := repo.RecordCycle(ctx, sampleCycle("cycle-1", base)); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}
	if err := repo.RecordCycle(ctx, sampleCycle("cycle-2", base.Add(time.Minute))); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}

	commands, err := repo.DeviceHistory(ctx, "radiator-living", 10)
	if err != nil {
		t.Fatalf("DeviceHistory() error = %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(commands))
	}
	if commands[0].CycleID != "cycle-2" {
		t.Errorf("newest command cycle = %q, want cycle-2", commands[0].CycleID)
	}
}

func TestPrune(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	old := sampleCycle("ancient", time.Now().UTC().Add(-48*time.Hour))
	recent := sampleCycle("recent", time.Now().UTC())
	if err := repo.RecordCycle(ctx, old); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}
	if err := repo.RecordCycle(ctx, recent); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}

	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	cycles, err := repo.ListCycles(ctx, 10)
	if err != nil {
		t.Fatalf("ListCycles() error = %v", err)
	}
	if len(cycles) != 1 || cycles[0].ID != "recent" {
		t.Errorf("remaining cycles = %+v, want only recent", cycles)
	}
}

func TestPrune_InvalidRetention(t *testing.T) {
	repo := setupRepository(t)

	if _, err := repo.Prune(context.Background(), 0); err == nil {
		t.Fatal("Prune(0) should fail")
	}
}
