package compiler

import (
	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
)

// RelativeAction is one compiled action for current-generation
// controllers: a zero-based relative time plus the output values. The
// owner handler is dropped; the controller only needs times and values.
type RelativeAction struct {
	TimeMillis float64
	Digital    uint32
	Analog     [actiontable.AnalogChannels]float64
}

// CompileRelative extracts the rows in [start, stop), rebases their
// timestamps so the first selected row is at time zero, and drops the
// handler field.
//
// If repDuration is non-nil and the last rebased action occurs strictly
// before it, one synthetic action is appended at repDuration repeating
// the last row's values, so the hardware holds its final state for the
// full repeat period.
//
// Errors: actiontable.ErrEmptySelection if the range selects no rows;
// ErrInvalidRepDuration if repDuration is present but not a positive
// finite number.
func CompileRelative(table actiontable.Table, start, stop int, repDuration *float64) ([]RelativeAction, error) {
	rows, err := table.Select(start, stop)
	if err != nil {
		return nil, err
	}
	if err := validateRepDuration(repDuration); err != nil {
		return nil, err
	}

	t0 := rows[0].TimeMillis
	actions := make([]RelativeAction, 0, len(rows)+1)
	for _, row := range rows {
		actions = append(actions, RelativeAction{
			TimeMillis: row.TimeMillis - t0,
			Digital:    row.Digital,
			Analog:     row.Analog,
		})
	}

	if repDuration != nil && actions[len(actions)-1].TimeMillis < *repDuration {
		last := actions[len(actions)-1]
		last.TimeMillis = *repDuration
		actions = append(actions, last)
	}

	return actions, nil
}
