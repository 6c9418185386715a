package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// and the registry service translates them into coded domain errors.
//
//   - ErrNotFound: the record or row does not exist
//   - ErrConflict: a write collided with existing state (duplicate key, lost lock)
//   - ErrUnavailable: backing store or downstream sink temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
