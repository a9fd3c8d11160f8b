package compiler

import (
	"errors"
	"fmt"
	"math"
)

// Domain errors for the compiler package.
var (
	// ErrInvalidRepDuration is returned when a repeat duration is present
	// but not a positive finite number.
	ErrInvalidRepDuration = errors.New("compiler: invalid repeat duration")

	// ErrNoDigitalEvents is returned when the selected range produces zero
	// digital events, making the legacy controller's minimum-event
	// requirement unsatisfiable.
	ErrNoDigitalEvents = errors.New("compiler: no digital events in selection")

	// ErrTimingResolution indicates that two rows with different digital
	// states quantized to the same clock tick. The compiled profile is
	// still usable (the controller applies the later event), but the
	// experiment's timing requirements exceed the tick resolution.
	ErrTimingResolution = errors.New("compiler: timing resolution exceeded")
)

// ResolutionViolation records one pair of conflicting digital events on
// the same tick.
type ResolutionViolation struct {
	// Tick is the clock tick both events quantized to.
	Tick uint32

	// Prev and Next are the conflicting digital bitmasks, in table order.
	// The controller ends up applying Next.
	Prev, Next uint32
}

// TimingResolutionError reports every resolution violation found during
// one legacy compile. It wraps ErrTimingResolution for errors.Is checks.
//
// Compilation does not stop on violations: callers receive the complete
// profile alongside this error and decide whether to run it.
type TimingResolutionError struct {
	Violations []ResolutionViolation
}

func (e *TimingResolutionError) Error() string {
	if len(e.Violations) == 1 {
		v := e.Violations[0]
		return fmt.Sprintf("%v: tick %d holds %#x and %#x",
			ErrTimingResolution, v.Tick, v.Prev, v.Next)
	}
	return fmt.Sprintf("%v: %d conflicting ticks", ErrTimingResolution, len(e.Violations))
}

func (e *TimingResolutionError) Unwrap() error { return ErrTimingResolution }

// validateRepDuration checks an optional repeat duration. A nil pointer
// means no repeats and is always valid.
func validateRepDuration(repDuration *float64) error {
	if repDuration == nil {
		return nil
	}
	d := *repDuration
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRepDuration, d)
	}
	return nil
}
