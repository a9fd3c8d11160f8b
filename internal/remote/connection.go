package remote

import (
	"context"

	"github.com/nerrad567/pulsegrid-core/internal/compiler"
)

// Connection is the closed set of operations the signal-generation
// controller supports. The executor drives experiments exclusively
// through this interface; Client is the MQTT implementation and tests
// provide fakes.
//
// Every call is bounded by the implementation's request timeout on top
// of any deadline in ctx. Failures in transit surface as errors
// matching ErrConnection.
type Connection interface {
	// ReadDigital returns the digital output bitmask the controller
	// currently holds.
	ReadDigital(ctx context.Context) (uint32, error)

	// WriteDigital sets the full digital output bitmask immediately.
	WriteDigital(ctx context.Context, value uint32) error

	// ReadPosition returns the current value of one analog channel.
	ReadPosition(ctx context.Context, channel int) (float64, error)

	// MoveAbsolute drives one analog channel to an absolute value
	// immediately.
	MoveAbsolute(ctx context.Context, channel int, value float64) error

	// PrepareActions uploads a relative-time action list to a
	// current-generation controller. The run starts on RunActions.
	PrepareActions(ctx context.Context, actions []compiler.RelativeAction, numReps int) error

	// LoadProfile stages a compiled legacy profile (descriptor plus
	// event lists) on the gateway.
	LoadProfile(ctx context.Context, profile *compiler.Profile) error

	// DownloadProfile transfers the staged profile into controller
	// memory.
	DownloadProfile(ctx context.Context) error

	// InitProfile arms the downloaded profile for numReps repetitions.
	InitProfile(ctx context.Context, numReps int) error

	// RunActions starts execution of whatever was prepared or armed.
	// Completion arrives later as a done notification.
	RunActions(ctx context.Context) error

	// Abort stops the controller, best effort. It returns promptly even
	// if the hardware is mid-run and still draining.
	Abort(ctx context.Context) error

	// RegisterNotificationTarget tells the gateway where to deliver
	// asynchronous notifications for this core instance.
	RegisterNotificationTarget(ctx context.Context, address string) error

	// SetOnDone installs the callback invoked from the notification
	// delivery path when a run completes or is aborted. The callback
	// receives the controller's device ID and must not block.
	SetOnDone(fn func(deviceID string))
}
