package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
	"github.com/nerrad567/pulsegrid-core/internal/compiler"
	"github.com/nerrad567/pulsegrid-core/internal/remote"
)

// Generation identifies the controller generation, fixed per device
// instance at construction. It selects the compilation path.
type Generation string

const (
	// GenerationDirect controllers accept floating-point relative
	// timestamps via PrepareActions.
	GenerationDirect Generation = "direct"

	// GenerationLegacy controllers require tick-quantized profiles
	// loaded through the LoadProfile/DownloadProfile/InitProfile
	// sequence.
	GenerationLegacy Generation = "legacy"
)

// waitingMessage is the human-readable status shown while a run is in
// flight.
const waitingMessage = "Waiting for\ncontroller to finish"

// Logger is the logging interface used by the executor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Executor is the per-device execution facade.
//
// It owns the carried device state for legacy controllers, serializes
// compile+execute cycles, and bridges the gateway's asynchronous done
// notification into a synchronous Execute call.
type Executor struct {
	conn       remote.Connection
	deviceID   string
	generation Generation
	legacy     compiler.LegacyCompiler
	sync       *CompletionSynchronizer
	status     StatusPublisher
	recorder   RunRecorder
	states     StateStore
	logger     Logger

	// notifyAddress is handed to the gateway so it knows where to push
	// notifications for this core instance.
	notifyAddress string

	// state is the hardware state carried between legacy compiles.
	// Guarded by runMu: only the goroutine owning the current cycle may
	// touch it.
	state compiler.DeviceState

	// runMu serializes compile+execute cycles (and manual output
	// operations) per device.
	runMu sync.Mutex

	// initMu serializes initialization so two setup sequences never race
	// on the same remote handle.
	initMu      sync.Mutex
	initialized atomic.Bool

	// aborted marks the in-flight run as externally terminated.
	aborted atomic.Bool
}

// Options configures an Executor.
type Options struct {
	// Connection is the controller command link. Required.
	Connection remote.Connection

	// DeviceID identifies the controller; it is also the completion tag
	// correlating done notifications with this instance. Required.
	DeviceID string

	// Generation selects the compilation path. Defaults to
	// GenerationDirect.
	Generation Generation

	// TickRate overrides the legacy controller clock rate in ticks per
	// millisecond. Defaults to compiler.DefaultTickRate.
	TickRate float64

	// NotifyAddress is registered with the gateway as the notification
	// target for this core instance.
	NotifyAddress string

	// Status receives fire-and-forget execution status events. Optional.
	Status StatusPublisher

	// Recorder persists run records. Optional.
	Recorder RunRecorder

	// States persists carried device state across restarts. Optional.
	States StateStore

	// Logger is optional.
	Logger Logger
}

// New creates an executor for one controller. Call Initialize before
// Execute.
func New(opts Options) (*Executor, error) {
	if opts.Connection == nil {
		return nil, fmt.Errorf("executor: connection is required")
	}
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("executor: device ID is required")
	}
	if opts.Generation == "" {
		opts.Generation = GenerationDirect
	}
	if opts.Generation != GenerationDirect && opts.Generation != GenerationLegacy {
		return nil, fmt.Errorf("executor: unknown generation %q", opts.Generation)
	}
	if opts.TickRate <= 0 {
		opts.TickRate = compiler.DefaultTickRate
	}
	if opts.Status == nil {
		opts.Status = NopStatusPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	e := &Executor{
		conn:          opts.Connection,
		deviceID:      opts.DeviceID,
		generation:    opts.Generation,
		legacy:        compiler.LegacyCompiler{TickRate: opts.TickRate},
		sync:          NewCompletionSynchronizer(),
		status:        opts.Status,
		recorder:      opts.Recorder,
		states:        opts.States,
		logger:        opts.Logger,
		notifyAddress: opts.NotifyAddress,
	}

	// Done notifications carry the gateway's device ID; routing them
	// through the synchronizer by that ID keeps independent devices from
	// cross-signalling. Duplicates land on an empty tag and are dropped.
	e.conn.SetOnDone(func(deviceID string) {
		e.logger.Debug("done notification", "device", deviceID)
		e.sync.Signal(deviceID)
	})

	return e, nil
}

// Generation returns the controller generation this executor compiles
// for.
func (e *Executor) Generation() Generation { return e.generation }

// DeviceID returns the controller ID.
func (e *Executor) DeviceID() string { return e.deviceID }

// Busy reports whether a run is currently in flight.
func (e *Executor) Busy() bool { return e.sync.Waiting(e.deviceID) }

// State returns the carried device state. Valid between cycles; during
// a run it reflects the pre-run snapshot.
func (e *Executor) State() compiler.DeviceState {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.state
}

// SetState seeds the carried device state, typically from the state
// store at startup.
func (e *Executor) SetState(state compiler.DeviceState) {
	e.runMu.Lock()
	e.state = state
	e.runMu.Unlock()
}

// Initialize connects the controller: aborts any stale run left from a
// previous session and registers this instance as the notification
// target. Serialized; concurrent calls queue.
func (e *Executor) Initialize(ctx context.Context) error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if err := e.conn.Abort(ctx); err != nil {
		return fmt.Errorf("clearing controller on init: %w", err)
	}
	if err := e.conn.RegisterNotificationTarget(ctx, e.notifyAddress); err != nil {
		return fmt.Errorf("registering notification target: %w", err)
	}

	e.initialized.Store(true)
	e.logger.Info("controller initialized", "device", e.deviceID, "generation", e.generation)
	return nil
}

// Prepare readies the device for an experiment. The notification
// target is re-registered (the gateway may have restarted since
// initialization), and for legacy controllers the current digital
// state and analog positions are read into the carried baselines.
//
// If the controller was never initialized (the gateway may have been
// down at startup), initialization is attempted first, so a gateway
// that comes up late is recovered on the next prepare rather than
// requiring a restart.
func (e *Executor) Prepare(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.initialized.Load() {
		if err := e.Initialize(ctx); err != nil {
			return err
		}
	}

	if err := e.conn.RegisterNotificationTarget(ctx, e.notifyAddress); err != nil {
		return fmt.Errorf("re-registering notification target: %w", err)
	}

	if e.generation != GenerationLegacy {
		return nil
	}

	digital, err := e.conn.ReadDigital(ctx)
	if err != nil {
		return fmt.Errorf("reading digital state: %w", err)
	}
	var baselines [actiontable.AnalogChannels]float64
	for ch := range baselines {
		v, err := e.conn.ReadPosition(ctx, ch)
		if err != nil {
			return fmt.Errorf("reading analog channel %d: %w", ch, err)
		}
		baselines[ch] = v
	}

	e.state = compiler.DeviceState{Digital: digital, Baselines: baselines}
	e.persistState(ctx)
	e.logger.Debug("baselines snapshot", "device", e.deviceID,
		"digital", digital, "baselines", baselines)
	return nil
}

// Execute compiles the rows in [start, stop) and runs them on the
// controller, blocking until the done notification arrives, Abort is
// called, or ctx is cancelled. The returned record summarizes the run
// (compiled event counts, timing-resolution violations, abort flag);
// it is valid whenever the run was attempted, even alongside an error.
//
// Timing-resolution violations on the legacy path are logged and
// recorded but do not stop the run. Connection failures abort the
// cycle and surface immediately; they are never retried here.
func (e *Executor) Execute(ctx context.Context, table actiontable.Table, start, stop, numReps int, repDuration *float64) (RunRecord, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.initialized.Load() {
		return RunRecord{}, ErrNotInitialized
	}

	e.aborted.Store(false)

	rec := RunRecord{
		ID:         uuid.NewString(),
		DeviceID:   e.deviceID,
		Generation: e.generation,
		StartedAt:  time.Now().UTC(),
		Rows:       stop - start,
		NumReps:    numReps,
	}

	var err error
	switch e.generation {
	case GenerationLegacy:
		err = e.executeLegacy(ctx, table, start, stop, numReps, repDuration, &rec)
	default:
		err = e.executeDirect(ctx, table, start, stop, numReps, repDuration)
	}

	rec.FinishedAt = time.Now().UTC()
	rec.Aborted = e.aborted.Load()
	e.record(ctx, rec)

	return rec, err
}

// executeDirect runs the floating-point action path.
func (e *Executor) executeDirect(ctx context.Context, table actiontable.Table, start, stop, numReps int, repDuration *float64) error {
	actions, err := compiler.CompileRelative(table, start, stop, repDuration)
	if err != nil {
		return err
	}

	e.status.PublishWaiting(e.deviceID, waitingMessage, ColorBusy)
	defer e.status.PublishComplete(e.deviceID)

	if err := e.conn.PrepareActions(ctx, actions, numReps); err != nil {
		return err
	}
	return e.sync.RunAndWait(ctx, e.deviceID, func() error {
		return e.conn.RunActions(ctx)
	})
}

// executeLegacy runs the tick-quantized profile path.
func (e *Executor) executeLegacy(ctx context.Context, table actiontable.Table, start, stop, numReps int, repDuration *float64, rec *RunRecord) error {
	profile, next, err := e.legacy.Compile(table, start, stop, repDuration, e.state)

	var tre *compiler.TimingResolutionError
	if errors.As(err, &tre) {
		// Recoverable: the profile is complete and the controller applies
		// the later event on each conflicting tick. The operator needs to
		// know the experiment outran the tick resolution.
		e.logger.Warn("timing resolution exceeded",
			"device", e.deviceID, "violations", len(tre.Violations))
		rec.Violations = len(tre.Violations)
	} else if err != nil {
		return err
	}

	rec.DigitalEvents = len(profile.Digitals)
	for _, events := range profile.Analogs {
		rec.AnalogEvents += len(events)
	}

	e.status.PublishWaiting(e.deviceID, waitingMessage, ColorBusy)
	defer e.status.PublishComplete(e.deviceID)

	if err := e.conn.LoadProfile(ctx, profile); err != nil {
		return err
	}
	if err := e.conn.DownloadProfile(ctx); err != nil {
		return err
	}
	if err := e.conn.InitProfile(ctx, numReps); err != nil {
		return err
	}

	// Execution is handed to the connection: commit the carried state.
	// It now describes what the hardware will hold, which is what the
	// next compile's offsets must be relative to.
	e.state = next
	e.persistState(ctx)

	return e.sync.RunAndWait(ctx, e.deviceID, func() error {
		return e.conn.RunActions(ctx)
	})
}

// Abort terminates the in-flight run, if any. The abort command is
// forwarded to the controller best-effort, and the completion wait for
// this device is released regardless, so the blocked Execute caller
// regains control immediately even if the hardware never confirms.
// Safe to call at any time, including before initialization.
func (e *Executor) Abort(ctx context.Context) {
	e.aborted.Store(true)

	if err := e.conn.Abort(ctx); err != nil {
		// The hardware may be unresponsive; the caller still gets
		// released below.
		e.logger.Warn("abort command failed", "device", e.deviceID, "error", err)
	}

	e.sync.Release(e.deviceID)
	e.logger.Info("run aborted", "device", e.deviceID)
}

// ReadOutputs returns the controller's current digital bitmask and
// analog positions, for manual-control UIs.
func (e *Executor) ReadOutputs(ctx context.Context) (uint32, [actiontable.AnalogChannels]float64, error) {
	var analog [actiontable.AnalogChannels]float64

	digital, err := e.conn.ReadDigital(ctx)
	if err != nil {
		return 0, analog, err
	}
	for ch := range analog {
		v, err := e.conn.ReadPosition(ctx, ch)
		if err != nil {
			return 0, analog, err
		}
		analog[ch] = v
	}
	return digital, analog, nil
}

// WriteDigital sets the digital output bitmask directly, for manual
// control between runs.
func (e *Executor) WriteDigital(ctx context.Context, value uint32) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.conn.WriteDigital(ctx, value)
}

// MoveAnalog drives one analog channel to an absolute value, for
// manual control between runs.
func (e *Executor) MoveAnalog(ctx context.Context, channel int, value float64) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.conn.MoveAbsolute(ctx, channel, value)
}

// TriggerNow pulses the given digital lines: XOR them into the current
// state, hold for dt, XOR them back. Used to fire a camera or light
// trigger outside a profile.
func (e *Executor) TriggerNow(ctx context.Context, lines uint32, dt time.Duration) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	current, err := e.conn.ReadDigital(ctx)
	if err != nil {
		return err
	}
	if err := e.conn.WriteDigital(ctx, current^lines); err != nil {
		return err
	}

	select {
	case <-time.After(dt):
	case <-ctx.Done():
	}

	// Restore on cancellation too; the line must not stay flipped. The
	// restore write is detached from ctx so a caller giving up mid-pulse
	// cannot strand the line high.
	if err := e.conn.WriteDigital(context.WithoutCancel(ctx), current); err != nil {
		return err
	}
	return ctx.Err()
}

// persistState saves the carried state if a store is configured.
func (e *Executor) persistState(ctx context.Context) {
	if e.states == nil {
		return
	}
	if err := e.states.SaveDeviceState(ctx, e.deviceID, e.state); err != nil {
		e.logger.Error("persisting device state", "device", e.deviceID, "error", err)
	}
}

// record saves the run record if a recorder is configured.
func (e *Executor) record(ctx context.Context, rec RunRecord) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordRun(ctx, rec); err != nil {
		e.logger.Error("recording run", "run", rec.ID, "error", err)
	}
}
