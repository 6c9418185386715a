package events

import (
	"context"
	"sync"

	"atelier/internal/registry/models"
)

// Recorder keeps published events in memory so tests can assert on
// emission order.
type Recorder struct {
	mu      sync.RWMutex
	batches [][]models.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Name() string {
	return "memory"
}

func (r *Recorder) Publish(_ context.Context, events []models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]models.Event(nil), events...))
	return nil
}

// Events returns every recorded event in publish order.
func (r *Recorder) Events() []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Event
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

// Batches returns the recorded events grouped by Publish call.
func (r *Recorder) Batches() [][]models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([][]models.Event, len(r.batches))
	for i, b := range r.batches {
		out[i] = append([]models.Event(nil), b...)
	}
	return out
}

// Kinds returns the kinds of every recorded event in publish order.
func (r *Recorder) Kinds() []models.EventKind {
	evs := r.Events()
	out := make([]models.EventKind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = nil
}
