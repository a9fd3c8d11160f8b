package actiontable

import "errors"

// Domain errors for the actiontable package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, actiontable.ErrEmptySelection) {
//	    // handle empty selection
//	}
var (
	// ErrEmptySelection is returned when a selection range contains no rows
	// (stopIndex <= startIndex, or indices outside the table).
	ErrEmptySelection = errors.New("actiontable: empty selection")

	// ErrUnordered is returned when table rows are not ordered by
	// non-decreasing timestamp.
	ErrUnordered = errors.New("actiontable: rows not ordered by timestamp")
)
