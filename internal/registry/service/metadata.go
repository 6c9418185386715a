package service

import (
	"context"

	"atelier/internal/registry/models"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
)

// UpdateMetadata replaces a record's metadata and returns the new version.
// Rejections: 103 paused, 102 unknown id, 101 not owner, 110 bad string
// length, 108 frozen.
func (s *Service) UpdateMetadata(ctx context.Context, caller domain.Address, id domain.TokenID, update models.MetadataUpdate) (uint32, error) {
	var version uint32
	err := s.mutate(ctx, OpUpdateMetadata, caller, tokenAttrs(id), func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		token, err := s.ownedToken(ctx, tx, caller, id)
		if err != nil {
			return nil, err
		}
		if err := models.ValidateUpdate(update.URI, update.Description, update.License); err != nil {
			return nil, err
		}
		if err := token.Metadata.CanUpdate(); err != nil {
			return nil, err
		}
		token.Metadata.ApplyUpdate(update.URI, update.Description, update.License)
		if err := tx.UpdateToken(ctx, token); err != nil {
			return nil, err
		}
		version = token.Metadata.Version
		return []models.Event{models.MetadataUpdateEvent(id, version)}, nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// FreezeMetadata locks a record's metadata permanently.
// Rejections: 103 paused, 102 unknown id, 101 not owner, 108 already frozen.
func (s *Service) FreezeMetadata(ctx context.Context, caller domain.Address, id domain.TokenID) error {
	return s.mutate(ctx, OpFreezeMetadata, caller, tokenAttrs(id), func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		token, err := s.ownedToken(ctx, tx, caller, id)
		if err != nil {
			return nil, err
		}
		if err := token.Metadata.CanFreeze(); err != nil {
			return nil, err
		}
		token.Metadata.ApplyFreeze()
		if err := tx.UpdateToken(ctx, token); err != nil {
			return nil, err
		}
		return []models.Event{models.MetadataFrozenEvent(id)}, nil
	})
}
