package runlog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
	"github.com/nerrad567/pulsegrid-core/internal/compiler"
	"github.com/nerrad567/pulsegrid-core/internal/executor"
)

// openTestStore creates a store backed by a temporary database with the
// runs and device_states tables in place.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "runlog.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			generation TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			rows INTEGER NOT NULL,
			num_reps INTEGER NOT NULL,
			digital_events INTEGER NOT NULL DEFAULT 0,
			analog_events INTEGER NOT NULL DEFAULT 0,
			violations INTEGER NOT NULL DEFAULT 0,
			aborted INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE device_states (
			device_id TEXT PRIMARY KEY,
			digital INTEGER NOT NULL,
			baseline_0 REAL NOT NULL DEFAULT 0,
			baseline_1 REAL NOT NULL DEFAULT 0,
			baseline_2 REAL NOT NULL DEFAULT 0,
			baseline_3 REAL NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}

	return NewStore(db)
}

func testRecord(id string, started time.Time) executor.RunRecord {
	return executor.RunRecord{
		ID:            id,
		DeviceID:      "dsp",
		Generation:    executor.GenerationLegacy,
		StartedAt:     started,
		FinishedAt:    started.Add(2 * time.Second),
		Rows:          3,
		NumReps:       10,
		DigitalEvents: 4,
		AnalogEvents:  2,
		Violations:    0,
		Aborted:       false,
	}
}

func TestRecordRunAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	if err := store.RecordRun(ctx, testRecord("run-1", base)); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := store.RecordRun(ctx, testRecord("run-2", base.Add(time.Minute))); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := store.ListRuns(ctx, "dsp", 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("ListRuns() returned %d runs, want 2", len(runs))
	}

	// Newest first
	if runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Errorf("ListRuns() order = [%s, %s], want [run-2, run-1]", runs[0].ID, runs[1].ID)
	}

	got := runs[1]
	if got.Generation != executor.GenerationLegacy {
		t.Errorf("Generation = %q, want %q", got.Generation, executor.GenerationLegacy)
	}
	if got.Rows != 3 || got.NumReps != 10 {
		t.Errorf("Rows/NumReps = %d/%d, want 3/10", got.Rows, got.NumReps)
	}
	if got.DigitalEvents != 4 || got.AnalogEvents != 2 {
		t.Errorf("events = %d/%d, want 4/2", got.DigitalEvents, got.AnalogEvents)
	}
	if !got.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, base)
	}
	if got.Aborted {
		t.Error("Aborted = true, want false")
	}
}

func TestRecordRun_Aborted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("run-abort", time.Now().UTC())
	rec.Aborted = true
	rec.Violations = 2

	if err := store.RecordRun(ctx, rec); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := store.ListRuns(ctx, "dsp", 1)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	if !runs[0].Aborted {
		t.Error("Aborted = false, want true")
	}
	if runs[0].Violations != 2 {
		t.Errorf("Violations = %d, want 2", runs[0].Violations)
	}
}

func TestRecordRun_Validation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("", time.Now())
	if err := store.RecordRun(ctx, rec); err == nil {
		t.Error("RecordRun() with empty ID should fail")
	}

	rec = testRecord("run-x", time.Now())
	rec.DeviceID = ""
	if err := store.RecordRun(ctx, rec); err == nil {
		t.Error("RecordRun() with empty device ID should fail")
	}
}

func TestListRuns_FiltersByDevice(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("run-a", time.Now().UTC())
	if err := store.RecordRun(ctx, rec); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	other := testRecord("run-b", time.Now().UTC())
	other.DeviceID = "dsp-2"
	if err := store.RecordRun(ctx, other); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := store.ListRuns(ctx, "dsp-2", 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-b" {
		t.Errorf("ListRuns(dsp-2) = %v, want [run-b]", runs)
	}
}

func TestDeviceState_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	state := compiler.DeviceState{
		Digital:   0x5,
		Baselines: [actiontable.AnalogChannels]float64{1.5, -2.25, 0, 10},
	}

	if err := store.SaveDeviceState(ctx, "dsp", state); err != nil {
		t.Fatalf("SaveDeviceState() error = %v", err)
	}

	got, found, err := store.LoadDeviceState(ctx, "dsp")
	if err != nil {
		t.Fatalf("LoadDeviceState() error = %v", err)
	}
	if !found {
		t.Fatal("LoadDeviceState() found = false, want true")
	}
	if got != state {
		t.Errorf("LoadDeviceState() = %+v, want %+v", got, state)
	}
}

func TestDeviceState_Upsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := compiler.DeviceState{Digital: 1}
	second := compiler.DeviceState{
		Digital:   7,
		Baselines: [actiontable.AnalogChannels]float64{0.5, 0, 0, 0},
	}

	if err := store.SaveDeviceState(ctx, "dsp", first); err != nil {
		t.Fatalf("SaveDeviceState() error = %v", err)
	}
	if err := store.SaveDeviceState(ctx, "dsp", second); err != nil {
		t.Fatalf("SaveDeviceState() second error = %v", err)
	}

	got, found, err := store.LoadDeviceState(ctx, "dsp")
	if err != nil {
		t.Fatalf("LoadDeviceState() error = %v", err)
	}
	if !found {
		t.Fatal("LoadDeviceState() found = false, want true")
	}
	if got != second {
		t.Errorf("LoadDeviceState() = %+v, want %+v", got, second)
	}
}

func TestDeviceState_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, found, err := store.LoadDeviceState(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("LoadDeviceState() error = %v", err)
	}
	if found {
		t.Error("LoadDeviceState() found = true for unknown device")
	}
}
