package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"atelier/internal/registry/models"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
)

// TransferAdmin hands administration to newAdmin.
// Rejections: 100 not admin, 104 null address.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin domain.Address) error {
	attrs := []attribute.KeyValue{attribute.String("registry.new_admin", newAdmin.String())}
	err := s.mutate(ctx, OpTransferAdmin, caller, attrs, func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		control, err := tx.Control(ctx)
		if err != nil {
			return nil, err
		}
		if err := control.TransferAdmin(caller, newAdmin); err != nil {
			return nil, err
		}
		if err := tx.SaveControl(ctx, control); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "admin_transferred", "caller", caller.String(), "new_admin", newAdmin.String())
	return nil
}

// SetPaused sets the pause flag and returns it. Setting the current value succeeds.
// Rejections: 100 not admin.
func (s *Service) SetPaused(ctx context.Context, caller domain.Address, paused bool) (bool, error) {
	attrs := []attribute.KeyValue{attribute.Bool("registry.paused", paused)}
	err := s.mutate(ctx, OpSetPaused, caller, attrs, func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		control, err := tx.Control(ctx)
		if err != nil {
			return nil, err
		}
		if err := control.SetPaused(caller, paused); err != nil {
			return nil, err
		}
		if err := tx.SaveControl(ctx, control); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	s.logAudit(ctx, "pause_set", "caller", caller.String(), "paused", paused)
	return paused, nil
}
