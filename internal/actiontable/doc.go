// Package actiontable defines the device-agnostic action table that
// describes one experiment run.
//
// An action table is an ordered list of timestamped hardware actions.
// Each row carries the millisecond timestamp at which the action fires,
// the opaque ID of the handler that scheduled it, the full digital
// output bitmask, and the four analog output values. Rows are ordered
// by non-decreasing timestamp; this is an input invariant established
// by the experiment builder, not something this package re-sorts.
//
// Tables are read-only during compilation and owned by the caller for
// the duration of one compile+execute cycle.
package actiontable
