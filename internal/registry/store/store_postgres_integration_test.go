//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"atelier/internal/platform/postgres"
	"atelier/internal/registry/models"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
	"atelier/pkg/platform/sentinel"
	"atelier/pkg/testutil/containers"
)

var (
	pgAdmin = domain.MustParseAddress("0x00000000000000000000000000000000000000aa")
	pgOwner = domain.MustParseAddress("0x00000000000000000000000000000000000000bb")
	pgOther = domain.MustParseAddress("0x00000000000000000000000000000000000000cc")
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx, "registry_owner_tokens", "registry_tokens", "registry_control")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Init(s.ctx, models.Control{Admin: pgAdmin}))
}

func (s *PostgresStoreSuite) token(id domain.TokenID, owner domain.Address) *models.Token {
	return &models.Token{
		ID:    id,
		Owner: owner,
		Metadata: models.Metadata{
			URI:         "ipfs://design12345",
			Description: "desc",
			License:     "MIT License 123",
			Version:     1,
		},
		Royalty: models.Royalty{Recipient: owner, Percentage: 500},
	}
}

func (s *PostgresStoreSuite) mint(ctx context.Context, tx store.Tx, owner domain.Address) (domain.TokenID, error) {
	control, err := tx.Control(ctx)
	if err != nil {
		return 0, err
	}
	control.LastTokenID++
	if err := tx.SaveControl(ctx, control); err != nil {
		return 0, err
	}
	if err := tx.CreateToken(ctx, s.token(control.LastTokenID, owner)); err != nil {
		return 0, err
	}
	return control.LastTokenID, tx.AddOwned(ctx, owner, control.LastTokenID)
}

func (s *PostgresStoreSuite) TestInitKeepsExistingControl() {
	s.Require().NoError(s.store.Init(s.ctx, models.Control{Admin: pgOther}))

	control, err := s.store.Control(s.ctx)
	s.Require().NoError(err)
	s.Equal(pgAdmin, control.Admin)
	s.False(control.Paused)
	s.Zero(control.LastTokenID)
}

func (s *PostgresStoreSuite) TestTokenRoundTrip() {
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := s.mint(ctx, tx, pgOwner)
		return err
	})
	s.Require().NoError(err)

	s.Run("reads back every component", func() {
		token, err := s.store.Token(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal(s.token(1, pgOwner), token)
		s.False(token.HasApproval())
	})

	s.Run("approval survives update and clears again", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
			token, err := tx.Token(ctx, 1)
			if err != nil {
				return err
			}
			token.ApplyApproval(pgOther)
			return tx.UpdateToken(ctx, token)
		})
		s.Require().NoError(err)

		token, err := s.store.Token(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal(pgOther, token.Approval)

		err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
			token.ClearApproval()
			return tx.UpdateToken(ctx, token)
		})
		s.Require().NoError(err)

		token, err = s.store.Token(s.ctx, 1)
		s.Require().NoError(err)
		s.False(token.HasApproval())
	})

	s.Run("duplicate id is a conflict", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.CreateToken(ctx, s.token(1, pgOwner))
		})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Token(s.ctx, 404)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestRollback() {
	boom := errors.New("boom")
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := s.mint(ctx, tx, pgOwner); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	control, err := s.store.Control(s.ctx)
	s.Require().NoError(err)
	s.Zero(control.LastTokenID)

	balance, err := s.store.Balance(s.ctx, pgOwner)
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *PostgresStoreSuite) TestCancelAfterStartStillCommits() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	err := s.store.RunInTx(ctx, func(txCtx context.Context, tx store.Tx) error {
		if _, err := s.mint(txCtx, tx, pgOwner); err != nil {
			return err
		}
		cancel()
		return nil
	})
	s.Require().NoError(err)

	control, err := s.store.Control(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.TokenID(1), control.LastTokenID)
}

func (s *PostgresStoreSuite) TestOwnerIndexOrder() {
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
		for range 4 {
			if _, err := s.mint(ctx, tx, pgOwner); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)

	// Moving id 2 away and back places it last.
	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.RemoveOwned(ctx, pgOwner, 2); err != nil {
			return err
		}
		if err := tx.AddOwned(ctx, pgOther, 2); err != nil {
			return err
		}
		if err := tx.RemoveOwned(ctx, pgOther, 2); err != nil {
			return err
		}
		return tx.AddOwned(ctx, pgOwner, 2)
	})
	s.Require().NoError(err)

	owned, err := s.store.OwnedTokens(s.ctx, pgOwner)
	s.Require().NoError(err)
	s.Equal(models.OwnerIndex{1, 3, 4, 2}, owned)

	id, ok, err := s.store.TokenByIndex(s.ctx, pgOwner, 3)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(domain.TokenID(2), id)

	_, ok, err = s.store.TokenByIndex(s.ctx, pgOwner, 4)
	s.Require().NoError(err)
	s.False(ok)

	empty, err := s.store.OwnedTokens(s.ctx, pgOther)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *PostgresStoreSuite) TestConcurrentWritersAllocateDistinctIDs() {
	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.RunInTx(s.ctx, func(ctx context.Context, tx store.Tx) error {
				_, err := s.mint(ctx, tx, pgOwner)
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	control, err := s.store.Control(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.TokenID(writers), control.LastTokenID)

	balance, err := s.store.Balance(s.ctx, pgOwner)
	s.Require().NoError(err)
	s.Equal(writers, balance)
}
