package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"atelier/internal/registry/models"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
)

// Mint creates a record owned by the admin and returns its id.
// Mint is gated by the admin check only; it is allowed while the registry is paused.
// Rejections: 100 not admin, 107 max supply, 104 null royalty recipient,
// 106 royalty out of range, 110 bad string length, 109 owner index full.
func (s *Service) Mint(ctx context.Context, caller domain.Address, req models.MintRequest) (domain.TokenID, error) {
	var minted domain.TokenID
	attrs := []attribute.KeyValue{attribute.Int64("registry.royalty_bps", int64(req.RoyaltyPercentage))}
	err := s.mutate(ctx, OpMint, caller, attrs, func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		control, err := tx.Control(ctx)
		if err != nil {
			return nil, err
		}
		if err := control.RequireAdmin(caller); err != nil {
			return nil, err
		}
		id, err := control.NextTokenID()
		if err != nil {
			return nil, err
		}
		royalty, err := models.NewRoyalty(req.RoyaltyRecipient, req.RoyaltyPercentage)
		if err != nil {
			return nil, err
		}
		metadata, err := models.NewMetadata(req.URI, req.Description, req.License)
		if err != nil {
			return nil, err
		}
		if err := s.ensureRoom(ctx, tx, caller, id); err != nil {
			return nil, err
		}

		control.LastTokenID = id
		if err := tx.SaveControl(ctx, control); err != nil {
			return nil, err
		}
		token := &models.Token{ID: id, Owner: caller, Metadata: metadata, Royalty: royalty}
		if err := tx.CreateToken(ctx, token); err != nil {
			return nil, err
		}
		if err := tx.AddOwned(ctx, caller, id); err != nil {
			return nil, err
		}
		minted = id
		return []models.Event{models.MintEvent(id, caller)}, nil
	})
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.IncrementMinted()
	}
	return minted, nil
}

// Transfer moves a record to recipient and clears its approval. It emits the
// recorded royalty configuration for information only; no value moves.
// Rejections: 103 paused, 102 unknown id, 101 not owner or approved,
// 104 null recipient, 109 owner index full.
func (s *Service) Transfer(ctx context.Context, caller domain.Address, id domain.TokenID, recipient domain.Address) error {
	attrs := []attribute.KeyValue{tokenAttr(id), attribute.String("registry.recipient", recipient.String())}
	return s.mutate(ctx, OpTransfer, caller, attrs, func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		if _, err := activeControl(ctx, tx); err != nil {
			return nil, err
		}
		token, err := loadToken(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := token.RequireOwnerOrApproved(caller); err != nil {
			return nil, err
		}
		if recipient.IsZero() {
			return nil, models.Reject(models.ErrCodeNullAddress, "recipient must not be the null address")
		}
		from := token.Owner
		if recipient != from {
			if err := s.ensureRoom(ctx, tx, recipient, id); err != nil {
				return nil, err
			}
		}

		evs := []models.Event{
			models.RoyaltyEvent(id, token.Royalty),
			models.TransferEvent(id, from, recipient),
		}
		token.ApplyTransfer(recipient)
		if err := tx.UpdateToken(ctx, token); err != nil {
			return nil, err
		}
		if err := tx.RemoveOwned(ctx, from, id); err != nil {
			return nil, err
		}
		if err := tx.AddOwned(ctx, recipient, id); err != nil {
			return nil, err
		}
		return evs, nil
	})
}

// Approve sets the single delegated operator of a record. An existing
// approval must be revoked first.
// Rejections: 103 paused, 102 unknown id, 101 not owner, 104 null operator,
// 105 already approved.
func (s *Service) Approve(ctx context.Context, caller domain.Address, id domain.TokenID, operator domain.Address) error {
	attrs := []attribute.KeyValue{tokenAttr(id), attribute.String("registry.operator", operator.String())}
	err := s.mutate(ctx, OpApprove, caller, attrs, func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		token, err := s.ownedToken(ctx, tx, caller, id)
		if err != nil {
			return nil, err
		}
		if err := token.CanApprove(operator); err != nil {
			return nil, err
		}
		token.ApplyApproval(operator)
		if err := tx.UpdateToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "approval_granted", "token_id", uint64(id), "operator", operator.String())
	return nil
}

// RevokeApproval clears the delegated operator. Clearing an empty slot succeeds.
// Rejections: 103 paused, 102 unknown id, 101 not owner.
func (s *Service) RevokeApproval(ctx context.Context, caller domain.Address, id domain.TokenID) error {
	err := s.mutate(ctx, OpRevokeApproval, caller, tokenAttrs(id), func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		token, err := s.ownedToken(ctx, tx, caller, id)
		if err != nil {
			return nil, err
		}
		if !token.HasApproval() {
			return nil, nil
		}
		token.ClearApproval()
		if err := tx.UpdateToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "approval_revoked", "token_id", uint64(id))
	return nil
}

// Burn destroys a record together with its metadata, royalty, approval, and
// index entry. Its id is never reissued.
// Rejections: 103 paused, 102 unknown id, 101 not owner.
func (s *Service) Burn(ctx context.Context, caller domain.Address, id domain.TokenID) error {
	err := s.mutate(ctx, OpBurn, caller, tokenAttrs(id), func(ctx context.Context, tx store.Tx) ([]models.Event, error) {
		token, err := s.ownedToken(ctx, tx, caller, id)
		if err != nil {
			return nil, err
		}
		if err := tx.RemoveOwned(ctx, token.Owner, id); err != nil {
			return nil, err
		}
		if err := tx.DeleteToken(ctx, id); err != nil {
			return nil, err
		}
		return []models.Event{models.BurnEvent(id)}, nil
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementBurned()
	}
	return nil
}

// ownedToken applies the checks shared by owner-only calls, in order:
// paused (103), unknown id (102), not owner (101).
func (s *Service) ownedToken(ctx context.Context, tx store.Tx, caller domain.Address, id domain.TokenID) (*models.Token, error) {
	if _, err := activeControl(ctx, tx); err != nil {
		return nil, err
	}
	token, err := loadToken(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := token.RequireOwner(caller); err != nil {
		return nil, err
	}
	return token, nil
}
