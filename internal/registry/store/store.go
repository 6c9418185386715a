// Package store persists registry state behind an explicit transaction boundary.
//
// Every mutating registry call runs inside RunInTx. Writes made through the Tx are
// applied together when fn returns nil and discarded entirely when it returns an
// error, so a rejected call leaves no partial state behind.
package store

import (
	"context"

	"atelier/internal/registry/models"
	"atelier/pkg/domain"
)

// Reader exposes committed registry state. Missing tokens are reported with
// sentinel.ErrNotFound; unknown owners simply have an empty index.
type Reader interface {
	Control(ctx context.Context) (models.Control, error)
	Token(ctx context.Context, id domain.TokenID) (*models.Token, error)
	Balance(ctx context.Context, owner domain.Address) (int, error)
	TokenByIndex(ctx context.Context, owner domain.Address, index int) (domain.TokenID, bool, error)
	OwnedTokens(ctx context.Context, owner domain.Address) (models.OwnerIndex, error)
}

// Tx reads its own uncommitted writes and stages new ones.
type Tx interface {
	Reader
	SaveControl(ctx context.Context, control models.Control) error
	// CreateToken fails with sentinel.ErrConflict if the id already exists.
	CreateToken(ctx context.Context, token *models.Token) error
	// UpdateToken fails with sentinel.ErrNotFound if the id does not exist.
	UpdateToken(ctx context.Context, token *models.Token) error
	DeleteToken(ctx context.Context, id domain.TokenID) error
	AddOwned(ctx context.Context, owner domain.Address, id domain.TokenID) error
	RemoveOwned(ctx context.Context, owner domain.Address, id domain.TokenID) error
}

// Store is the registry state backend. RunInTx serializes writers: at most one
// transaction is in flight at a time.
type Store interface {
	Reader
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
