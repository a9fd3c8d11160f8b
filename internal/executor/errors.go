package executor

import "errors"

// Domain errors for the executor package.
var (
	// ErrWaitPending is returned when a second wait is attempted on a
	// completion tag that already has an outstanding waiter. Exactly one
	// wait per tag is supported; concurrent executes on the same device
	// are a caller error.
	ErrWaitPending = errors.New("executor: wait already pending for tag")

	// ErrNotInitialized is returned when Execute is called before
	// Initialize has connected the device.
	ErrNotInitialized = errors.New("executor: device not initialized")
)
