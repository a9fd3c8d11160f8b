package actiontable

import "fmt"

// AnalogChannels is the number of analog output channels on the controller.
const AnalogChannels = 4

// Row is a single timestamped hardware action.
type Row struct {
	// TimeMillis is the action time in milliseconds from the start of the
	// experiment. Continuous; quantization to controller ticks (if any)
	// happens at compile time.
	TimeMillis float64

	// Handler identifies the device handler that scheduled the row. It is
	// opaque to the compilers and dropped from compiled output; the
	// controller only sees times and output values.
	Handler string

	// Digital is the full digital output bitmask at this time point.
	Digital uint32

	// Analog holds the absolute analog output values at this time point,
	// one per channel.
	Analog [AnalogChannels]float64
}

// Table is an ordered sequence of rows describing one experiment run.
type Table []Row

// Validate checks the ordering invariant: timestamps must be
// non-decreasing. Returns ErrUnordered naming the first offending row.
func (t Table) Validate() error {
	for i := 1; i < len(t); i++ {
		if t[i].TimeMillis < t[i-1].TimeMillis {
			return fmt.Errorf("%w: row %d (t=%g) before row %d (t=%g)",
				ErrUnordered, i, t[i].TimeMillis, i-1, t[i-1].TimeMillis)
		}
	}
	return nil
}

// CheckSelection validates the half-open selection range [start, stop).
// Returns ErrEmptySelection if the range selects no rows or falls
// outside the table.
func (t Table) CheckSelection(start, stop int) error {
	if start < 0 || stop > len(t) || stop <= start {
		return fmt.Errorf("%w: [%d, %d) of %d rows", ErrEmptySelection, start, stop, len(t))
	}
	return nil
}

// Select returns the rows in [start, stop). The returned slice aliases
// the table; callers must not mutate it during compilation.
func (t Table) Select(start, stop int) (Table, error) {
	if err := t.CheckSelection(start, stop); err != nil {
		return nil, err
	}
	return t[start:stop], nil
}
