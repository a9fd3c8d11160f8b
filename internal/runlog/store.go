package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/pulsegrid-core/internal/compiler"
	"github.com/nerrad567/pulsegrid-core/internal/executor"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store implements executor.RunRecorder and executor.StateStore using
// SQLite. It expects the runs and device_states tables created by the
// embedded migrations.
type Store struct {
	db *sql.DB
}

// NewStore creates a new run log store.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *Store: Store instance ready for use
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Compile-time interface checks.
var (
	_ executor.RunRecorder = (*Store)(nil)
	_ executor.StateStore  = (*Store)(nil)
)

// RecordRun inserts a run record.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - rec: Completed run record
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *Store) RecordRun(ctx context.Context, rec executor.RunRecord) error {
	if rec.ID == "" {
		return errors.New("run id is required")
	}
	if rec.DeviceID == "" {
		return errors.New("device id is required")
	}

	aborted := 0
	if rec.Aborted {
		aborted = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
			id, device_id, generation, started_at, finished_at,
			rows, num_reps, digital_events, analog_events, violations, aborted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.DeviceID,
		string(rec.Generation),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.Rows,
		rec.NumReps,
		rec.DigitalEvents,
		rec.AnalogEvents,
		rec.Violations,
		aborted,
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}

	return nil
}

// ListRuns returns recent runs for a controller, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Controller identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []executor.RunRecord: Run records ordered by started_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *Store) ListRuns(ctx context.Context, deviceID string, limit int) ([]executor.RunRecord, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, generation, started_at, finished_at,
			rows, num_reps, digital_events, analog_events, violations, aborted
		 FROM runs
		 WHERE device_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	records := make([]executor.RunRecord, 0, limit)
	for rows.Next() {
		var rec executor.RunRecord
		var generation string
		var startedAt, finishedAt string
		var aborted int

		if err := rows.Scan(
			&rec.ID, &rec.DeviceID, &generation, &startedAt, &finishedAt,
			&rec.Rows, &rec.NumReps, &rec.DigitalEvents, &rec.AnalogEvents,
			&rec.Violations, &aborted,
		); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}

		rec.Generation = executor.Generation(generation)
		rec.Aborted = aborted != 0

		rec.StartedAt, err = parseTimestamp(startedAt)
		if err != nil {
			return nil, err
		}
		rec.FinishedAt, err = parseTimestamp(finishedAt)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return records, nil
}

// SaveDeviceState upserts the carried state for a controller.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Controller identifier
//   - state: Digital line levels and analog baselines to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *Store) SaveDeviceState(ctx context.Context, deviceID string, state compiler.DeviceState) error {
	if deviceID == "" {
		return errors.New("device id is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_states (
			device_id, digital, baseline_0, baseline_1, baseline_2, baseline_3, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			digital = excluded.digital,
			baseline_0 = excluded.baseline_0,
			baseline_1 = excluded.baseline_1,
			baseline_2 = excluded.baseline_2,
			baseline_3 = excluded.baseline_3,
			updated_at = excluded.updated_at`,
		deviceID,
		state.Digital,
		state.Baselines[0],
		state.Baselines[1],
		state.Baselines[2],
		state.Baselines[3],
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving device state: %w", err)
	}

	return nil
}

// LoadDeviceState returns the carried state for a controller.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Controller identifier
//
// Returns:
//   - compiler.DeviceState: Persisted state (zero value if not found)
//   - bool: Whether a state row existed
//   - error: nil on success, otherwise the underlying query error
func (s *Store) LoadDeviceState(ctx context.Context, deviceID string) (compiler.DeviceState, bool, error) {
	if deviceID == "" {
		return compiler.DeviceState{}, false, errors.New("device id is required")
	}

	var state compiler.DeviceState
	err := s.db.QueryRowContext(ctx,
		`SELECT digital, baseline_0, baseline_1, baseline_2, baseline_3
		 FROM device_states
		 WHERE device_id = ?`,
		deviceID,
	).Scan(
		&state.Digital,
		&state.Baselines[0],
		&state.Baselines[1],
		&state.Baselines[2],
		&state.Baselines[3],
	)
	if errors.Is(err, sql.ErrNoRows) {
		return compiler.DeviceState{}, false, nil
	}
	if err != nil {
		return compiler.DeviceState{}, false, fmt.Errorf("loading device state: %w", err)
	}

	return state, true, nil
}

// parseTimestamp parses a stored RFC3339 timestamp.
func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return ts, nil
}
