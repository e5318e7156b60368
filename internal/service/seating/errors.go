package seating

import "errors"

// ErrConflict means a concurrent writer assigned the reservation to
// another table first.
var ErrConflict = errors.New("reservation is already assigned to a table")
