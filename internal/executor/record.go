package executor

import (
	"context"
	"time"

	"github.com/nerrad567/pulsegrid-core/internal/compiler"
)

// RunRecord summarizes one compile+execute cycle for bookkeeping.
type RunRecord struct {
	// ID is the unique run identifier (UUID).
	ID string

	// DeviceID is the controller that executed the run.
	DeviceID string

	// Generation is the controller generation the run was compiled for.
	Generation Generation

	StartedAt  time.Time
	FinishedAt time.Time

	// Rows is the number of action-table rows selected.
	Rows int

	// NumReps is the requested repetition count.
	NumReps int

	// DigitalEvents and AnalogEvents count compiled profile events
	// (legacy generation only; zero on the direct path).
	DigitalEvents int
	AnalogEvents  int

	// Violations counts timing-resolution violations found during
	// compilation.
	Violations int

	// Aborted reports whether the run ended via abort rather than the
	// controller's done notification.
	Aborted bool
}

// RunRecorder persists run records. Implementations must tolerate
// being called from the executing goroutine and should not block for
// long; failures are logged, never fatal to the run.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// StateStore persists the carried device state so a restart resumes
// with the last known hardware baselines.
type StateStore interface {
	SaveDeviceState(ctx context.Context, deviceID string, state compiler.DeviceState) error
	LoadDeviceState(ctx context.Context, deviceID string) (compiler.DeviceState, bool, error)
}
