// Package events delivers registry events to external observers.
//
// The registry publishes once per successful call, after its state has been
// committed, with that call's events in emission order. Sinks never take part
// in the registry transaction: a delivery failure is reported to the caller of
// Publish but cannot undo the call that produced the events.
package events

import (
	"context"
	"errors"
	"fmt"

	"atelier/internal/registry/models"
)

// Sink receives the events of one successful registry call.
type Sink interface {
	Name() string
	Publish(ctx context.Context, events []models.Event) error
}

// ErrCircuitOpen is returned by a Breaker that is skipping its sink.
var ErrCircuitOpen = errors.New("sink circuit open")

// SinkError attributes a delivery failure to a named sink.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// FailedSinks lists the sinks named by the SinkErrors in err, including
// those joined by a Group.
func FailedSinks(err error) []string {
	var names []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var se *SinkError
		if errors.As(e, &se) {
			names = append(names, se.Sink)
		}
	}
	walk(err)
	return names
}

func wrapSinkErr(name string, err error) error {
	if err == nil {
		return nil
	}
	var se *SinkError
	if errors.As(err, &se) {
		return err
	}
	return &SinkError{Sink: name, Err: err}
}
