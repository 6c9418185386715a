package service

import (
	"context"
	"errors"

	"atelier/internal/registry/models"
	"atelier/pkg/domain"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/sentinel"
)

// Reads never reject: unknown ids and owners report absence through the
// boolean result. The error return only carries store failures.

// Token returns the whole record, or false if id is not live.
func (s *Service) Token(ctx context.Context, id domain.TokenID) (*models.Token, bool, error) {
	token, err := s.store.Token(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
	}
	return token, true, nil
}

func (s *Service) Owner(ctx context.Context, id domain.TokenID) (domain.Address, bool, error) {
	token, ok, err := s.Token(ctx, id)
	if !ok || err != nil {
		return domain.Address{}, false, err
	}
	return token.Owner, true, nil
}

func (s *Service) Metadata(ctx context.Context, id domain.TokenID) (models.Metadata, bool, error) {
	token, ok, err := s.Token(ctx, id)
	if !ok || err != nil {
		return models.Metadata{}, false, err
	}
	return token.Metadata, true, nil
}

func (s *Service) Royalty(ctx context.Context, id domain.TokenID) (models.Royalty, bool, error) {
	token, ok, err := s.Token(ctx, id)
	if !ok || err != nil {
		return models.Royalty{}, false, err
	}
	return token.Royalty, true, nil
}

// Approval returns the delegated operator, or false if the record is unknown
// or has no delegate.
func (s *Service) Approval(ctx context.Context, id domain.TokenID) (domain.Address, bool, error) {
	token, ok, err := s.Token(ctx, id)
	if !ok || err != nil || !token.HasApproval() {
		return domain.Address{}, false, err
	}
	return token.Approval, true, nil
}

// Balance is the number of records owner holds; 0 for unknown owners.
func (s *Service) Balance(ctx context.Context, owner domain.Address) (int, error) {
	n, err := s.store.Balance(ctx, owner)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count owner tokens")
	}
	return n, nil
}

// TokenByIndex returns the id at position index of owner's list, or false
// when index is out of range.
func (s *Service) TokenByIndex(ctx context.Context, owner domain.Address, index int) (domain.TokenID, bool, error) {
	id, ok, err := s.store.TokenByIndex(ctx, owner, index)
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read owner index")
	}
	return id, ok, nil
}

// OwnedTokens returns owner's ids in acquisition order.
func (s *Service) OwnedTokens(ctx context.Context, owner domain.Address) (models.OwnerIndex, error) {
	idx, err := s.store.OwnedTokens(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read owner index")
	}
	return idx, nil
}

// Status returns the registry-wide control state.
func (s *Service) Status(ctx context.Context) (models.Control, error) {
	control, err := s.store.Control(ctx)
	if err != nil {
		return models.Control{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry control")
	}
	return control, nil
}

func (s *Service) LastTokenID(ctx context.Context) (domain.TokenID, error) {
	control, err := s.Status(ctx)
	return control.LastTokenID, err
}

func (s *Service) Admin(ctx context.Context) (domain.Address, error) {
	control, err := s.Status(ctx)
	return control.Admin, err
}

func (s *Service) IsPaused(ctx context.Context) (bool, error) {
	control, err := s.Status(ctx)
	return control.Paused, err
}
