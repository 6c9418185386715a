package events

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"atelier/internal/registry/models"
)

// Group fans a batch out to several sinks concurrently. Every sink is
// attempted; their failures are joined.
type Group struct {
	sinks []Sink
}

func NewGroup(sinks ...Sink) *Group {
	return &Group{sinks: sinks}
}

func (g *Group) Name() string {
	return "group"
}

// Len is the number of sinks in the group.
func (g *Group) Len() int {
	return len(g.sinks)
}

func (g *Group) Publish(ctx context.Context, events []models.Event) error {
	if len(g.sinks) == 0 || len(events) == 0 {
		return nil
	}
	errs := make([]error, len(g.sinks))
	var eg errgroup.Group
	for i, sink := range g.sinks {
		eg.Go(func() error {
			errs[i] = wrapSinkErr(sink.Name(), sink.Publish(ctx, events))
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}
