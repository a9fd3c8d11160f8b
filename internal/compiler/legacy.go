package compiler

import (
	"fmt"
	"math"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
)

// DefaultTickRate is the legacy controller's clock rate in ticks per
// millisecond.
const DefaultTickRate = 10

// DigitalEvent sets the full digital output bitmask at a clock tick.
type DigitalEvent struct {
	Tick  uint32
	Value uint32
}

// AnalogEvent moves one analog channel at a clock tick. Offset is
// relative to the channel's baseline when the profile was loaded, in
// the controller's inverted convention (baseline minus target).
type AnalogEvent struct {
	Tick   uint32
	Offset float64
}

// Profile is the legacy controller's compiled representation of an
// action table: a digital event list sampled at every source row,
// change-only analog event lists per channel, and the fixed-layout
// descriptor the controller reads before downloading the events.
type Profile struct {
	Digitals   []DigitalEvent
	Analogs    [actiontable.AnalogChannels][]AnalogEvent
	Descriptor Descriptor

	// Violations records same-tick digital conflicts found during
	// compilation. Non-empty iff Compile also returned a
	// TimingResolutionError.
	Violations []ResolutionViolation
}

// LegacyCompiler compiles action tables for the legacy controller
// generation.
type LegacyCompiler struct {
	// TickRate is the controller clock rate in ticks per millisecond.
	TickRate float64
}

// NewLegacyCompiler returns a compiler for the default 10 kHz clock.
func NewLegacyCompiler() LegacyCompiler {
	return LegacyCompiler{TickRate: DefaultTickRate}
}

// Compile quantizes the rows in [start, stop) into a tick-based
// profile and returns it together with the device state the hardware
// will hold after the profile runs.
//
// Timestamps are rebased to the first selected row and rounded half-up
// to integer ticks. Digital state is sampled at every row; analog
// channels receive change-only event streams of offsets from the
// carried baselines. Two firmware workarounds are applied after the
// event lists are built: the controller needs at least two digital
// events to run, and the last event overall must be digital or
// trailing analog moves are silently dropped. Both are resolved by
// duplicating the final digital event one tick later.
//
// repDuration is validated (ErrInvalidRepDuration) but does not alter
// the profile: repeat handling on the legacy controller is configured
// at run time via InitProfile, not encoded in the event lists.
//
// On timing-resolution violations the returned error wraps
// ErrTimingResolution while the profile and state are still complete
// and usable; both conflicting events are kept and the controller
// applies the later one. All other errors leave state unchanged and
// the profile nil.
func (c LegacyCompiler) Compile(table actiontable.Table, start, stop int, repDuration *float64, state DeviceState) (*Profile, DeviceState, error) {
	rows, err := table.Select(start, stop)
	if err != nil {
		return nil, state, err
	}
	if err := validateRepDuration(repDuration); err != nil {
		return nil, state, err
	}
	if c.TickRate <= 0 {
		return nil, state, fmt.Errorf("compiler: tick rate must be positive, got %g", c.TickRate)
	}

	p := &Profile{
		Digitals: make([]DigitalEvent, 0, len(rows)+1),
	}

	t0 := rows[0].TimeMillis
	for _, row := range rows {
		// Round half up. Plain truncation would split e.g. 10.1 and
		// 10.1999 onto different ticks.
		tick := uint32(math.Floor((row.TimeMillis-t0)*c.TickRate + 0.5))

		// Digital state is sampled at every row, never diffed: the
		// controller re-evaluates the bitmask at each tick it is told
		// about. A repeated tick with a different value cannot be
		// expressed; keep both events (the controller applies the later
		// one) and record the violation.
		if n := len(p.Digitals); n > 0 {
			if prev := p.Digitals[n-1]; prev.Tick == tick && prev.Value != row.Digital {
				p.Violations = append(p.Violations, ResolutionViolation{
					Tick: tick,
					Prev: prev.Value,
					Next: row.Digital,
				})
			}
		}
		p.Digitals = append(p.Digitals, DigitalEvent{Tick: tick, Value: row.Digital})

		// Analog moves enter the profile only on change. The controller
		// stores offsets from the baseline at profile load, computed as
		// baseline minus target.
		for ch := range row.Analog {
			offset := state.Baselines[ch] - row.Analog[ch]
			events := p.Analogs[ch]
			if len(events) == 0 {
				if offset != 0 {
					p.Analogs[ch] = append(events, AnalogEvent{Tick: tick, Offset: offset})
				}
			} else if offset != events[len(events)-1].Offset {
				p.Analogs[ch] = append(events, AnalogEvent{Tick: tick, Offset: offset})
			}
		}
	}

	if len(p.Digitals) == 0 {
		return nil, state, fmt.Errorf("%w: rows %d..%d", ErrNoDigitalEvents, start, stop)
	}

	applyFirmwareWorkarounds(p)

	p.Descriptor = Descriptor{
		Count:       maxTick(p),
		ClockMicros: float32(1000 / c.TickRate),
		InitDigital: state.Digital,
		NDigital:    uint32(len(p.Digitals)),
		NAnalog:     analogCounts(p),
	}

	// The state after this profile runs: the final digital value, and
	// baselines shifted by each channel's final offset.
	next := state
	next.Digital = p.Digitals[len(p.Digitals)-1].Value
	for ch, events := range p.Analogs {
		if len(events) > 0 {
			next.Baselines[ch] -= events[len(events)-1].Offset
		}
	}

	if len(p.Violations) > 0 {
		return p, next, &TimingResolutionError{Violations: p.Violations}
	}
	return p, next, nil
}

// applyFirmwareWorkarounds extends the digital stream to satisfy two
// controller firmware requirements:
//
//   - at least two digital events must exist or the profile does not
//     execute correctly;
//   - the last event overall must be digital, or trailing analog moves
//     at or after the final digital tick are silently not applied.
//
// Both are fixed the same way: duplicate the last digital event one
// tick later, a no-op output-wise.
func applyFirmwareWorkarounds(p *Profile) {
	last := p.Digitals[len(p.Digitals)-1]

	needPad := len(p.Digitals) == 1
	for _, events := range p.Analogs {
		if len(events) > 0 && events[len(events)-1].Tick >= last.Tick {
			needPad = true
		}
	}

	if needPad {
		p.Digitals = append(p.Digitals, DigitalEvent{Tick: last.Tick + 1, Value: last.Value})
	}
}

// maxTick returns the largest tick across the digital and analog event
// lists. After the firmware workarounds this is always achieved by the
// final digital event, but the scan keeps the descriptor honest by
// construction.
func maxTick(p *Profile) uint32 {
	m := uint32(0)
	for _, ev := range p.Digitals {
		if ev.Tick > m {
			m = ev.Tick
		}
	}
	for _, events := range p.Analogs {
		for _, ev := range events {
			if ev.Tick > m {
				m = ev.Tick
			}
		}
	}
	return m
}

func analogCounts(p *Profile) [actiontable.AnalogChannels]uint32 {
	var counts [actiontable.AnalogChannels]uint32
	for ch, events := range p.Analogs {
		counts[ch] = uint32(len(events))
	}
	return counts
}
