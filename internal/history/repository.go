package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/zone-climate-core/internal/engine"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// schema creates the history tables. Commands reference their cycle so
// pruning a cycle cascades to its commands.
const schema = `
CREATE TABLE IF NOT EXISTS cycles (
	id              TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	duration_ms     INTEGER NOT NULL,
	mode            TEXT NOT NULL,
	profile         TEXT NOT NULL,
	rooms_evaluated INTEGER NOT NULL,
	commands_issued INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);

CREATE TABLE IF NOT EXISTS commands (
	id        TEXT PRIMARY KEY,
	cycle_id  TEXT NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
	device    TEXT NOT NULL,
	state     TEXT NOT NULL,
	scripted  INTEGER NOT NULL,
	reason    TEXT NOT NULL,
	issued_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commands_cycle_id ON commands(cycle_id);
CREATE INDEX IF NOT EXISTS idx_commands_device ON commands(device);
`

// Repository stores cycle and command history in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates the repository and initialises its schema.
//
// Parameters:
//   - db: Open SQLite connection
//
// Returns:
//   - *Repository: Ready for use
//   - error: If schema creation fails
func NewRepository(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// RecordCycle persists one completed cycle with its emitted commands
// in a single transaction.
func (r *Repository) RecordCycle(ctx context.Context, cycle engine.CycleRecord) error {
	if cycle.ID == "" {
		return fmt.Errorf("cycle id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cycles (id, started_at, duration_ms, mode, profile, rooms_evaluated, commands_issued)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cycle.ID,
		cycle.StartedAt.UTC().Format(time.RFC3339Nano),
		cycle.DurationMS,
		string(cycle.Mode),
		string(cycle.Profile),
		cycle.RoomsEvaluated,
		cycle.CommandsIssued,
	)
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}

	for _, cmd := range cycle.Commands {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO commands (id, cycle_id, device, state, scripted, reason, issued_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cmd.ID,
			cycle.ID,
			cmd.Device,
			string(cmd.State),
			boolToInt(cmd.Scripted),
			cmd.Reason,
			cmd.IssuedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("inserting command: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cycle: %w", err)
	}
	return nil
}

// ListCycles returns recent cycles, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries (default 50, max 200)
func (r *Repository) ListCycles(ctx context.Context, limit int) ([]engine.CycleRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, mode, profile, rooms_evaluated, commands_issued
		 FROM cycles
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]engine.CycleRecord, 0, limit)
	for rows.Next() {
		var c engine.CycleRecord
		var startedAt, mode, profile string

		if err := rows.Scan(&c.ID, &startedAt, &c.DurationMS, &mode, &profile, &c.RoomsEvaluated, &c.CommandsIssued); err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}

		ts, err := parseTimestamp(startedAt)
		if err != nil {
			return nil, err
		}
		c.StartedAt = ts
		c.Mode = engine.Mode(mode)
		c.Profile = engine.Profile(profile)

		cycles = append(cycles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycles: %w", err)
	}
	return cycles, nil
}

// ListCommands returns the commands emitted by one cycle, in issue order.
func (r *Repository) ListCommands(ctx context.Context, cycleID string) ([]engine.CommandRecord, error) {
	if cycleID == "" {
		return nil, fmt.Errorf("cycle id is required")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, cycle_id, device, state, scripted, reason, issued_at
		 FROM commands
		 WHERE cycle_id = ?
		 ORDER BY issued_at, device`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	var commands []engine.CommandRecord
	for rows.Next() {
		var cmd engine.CommandRecord
		var state, issuedAt string
		var scripted int

		if err := rows.Scan(&cmd.ID, &cmd.CycleID, &cmd.Device, &state, &scripted, &cmd.Reason, &issuedAt); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}

		ts, err := parseTimestamp(issuedAt)
		if err != nil {
			return nil, err
		}
		cmd.IssuedAt = ts
		cmd.State = engine.DeviceState(state)
		cmd.Scripted = scripted != 0

		commands = append(commands, cmd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}
	return commands, nil
}

// DeviceHistory returns recent commands for one device, newest first.
func (r *Repository) DeviceHistory(ctx context.Context, device string, limit int) ([]engine.CommandRecord, error) {
	if device == "" {
		return nil, fmt.Errorf("device is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, cycle_id, device, state, scripted, reason, issued_at
		 FROM commands
		 WHERE device = ?
		 ORDER BY issued_at DESC
		 LIMIT ?`,
		device,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device history: %w", err)
	}
	defer rows.Close()

	var commands []engine.CommandRecord
	for rows.Next() {
		var cmd engine.CommandRecord
		var state, issuedAt string
		var scripted int

		if err := rows.Scan(&cmd.ID, &cmd.CycleID, &cmd.Device, &state, &scripted, &cmd.Reason, &issuedAt); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}

		ts, err := parseTimestamp(issuedAt)
		if err != nil {
			return nil, err
		}
		cmd.IssuedAt = ts
		cmd.State = engine.DeviceState(state)
		cmd.Scripted = scripted != 0

		commands = append(commands, cmd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device history: %w", err)
	}
	return commands, nil
}

// Prune deletes cycles (and, via cascade, their commands) older than
// the given retention.
//
// Returns:
//   - int64: Number of cycles deleted
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM cycles WHERE started_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting cycles: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	ts, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return ts, nil
	}

	fallback, fallbackErr := time.Parse(time.RFC3339, value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
