package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"atelier/internal/registry/models"
	"atelier/pkg/domain"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/sentinel"
	txcontext "atelier/pkg/platform/tx"
)

const (
	defaultTxTimeout = 5 * time.Second
	uniqueViolation  = "23505"
)

// Postgres persists registry state in PostgreSQL. Writers serialize on the
// singleton registry_control row, which every transaction locks first.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, timeout: defaultTxTimeout}
}

// Init seeds the control row for a new deployment. An existing row is kept,
// so restarting with a different admin setting never overrides state.
func (s *Postgres) Init(ctx context.Context, control models.Control) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_control (id, admin, paused, last_token_id)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, control.Admin[:], control.Paused, int64(control.LastTokenID))
	if err != nil {
		return fmt.Errorf("init registry control: %w", err)
	}
	return nil
}

// RunInTx runs fn in one SQL transaction. Cancellation is checked once on
// entry; after that the transaction is bounded only by the store timeout.
func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	txCtx := txcontext.WithTx(ctx, sqlTx)
	if _, err := s.lockControl(txCtx); err != nil {
		return err
	}
	if err := fn(txCtx, &postgresTx{Postgres: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit registry tx: %w", err)
	}
	return nil
}

func (s *Postgres) exec(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

func (s *Postgres) Control(ctx context.Context) (models.Control, error) {
	return s.scanControl(s.exec(ctx).QueryRowContext(ctx,
		`SELECT admin, paused, last_token_id FROM registry_control WHERE id = 1`))
}

func (s *Postgres) lockControl(ctx context.Context) (models.Control, error) {
	return s.scanControl(s.exec(ctx).QueryRowContext(ctx,
		`SELECT admin, paused, last_token_id FROM registry_control WHERE id = 1 FOR UPDATE`))
}

func (s *Postgres) scanControl(row *sql.Row) (models.Control, error) {
	var (
		admin  []byte
		paused bool
		lastID int64
	)
	if err := row.Scan(&admin, &paused, &lastID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Control{}, fmt.Errorf("registry control not initialized: %w", sentinel.ErrNotFound)
		}
		return models.Control{}, fmt.Errorf("load registry control: %w", err)
	}
	addr, err := toAddress(admin)
	if err != nil {
		return models.Control{}, err
	}
	return models.Control{Admin: addr, Paused: paused, LastTokenID: domain.TokenID(lastID)}, nil
}

func (s *Postgres) Token(ctx context.Context, id domain.TokenID) (*models.Token, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT owner, uri, description, license, metadata_version, metadata_frozen,
		       royalty_recipient, royalty_percentage, approval
		FROM registry_tokens
		WHERE token_id = $1
	`, int64(id))

	var (
		owner, recipient, approval []byte
		version, percentage        int64
		t                          = models.Token{ID: id}
	)
	err := row.Scan(&owner, &t.Metadata.URI, &t.Metadata.Description, &t.Metadata.License,
		&version, &t.Metadata.Frozen, &recipient, &percentage, &approval)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find token %d: %w", id, err)
	}
	if t.Owner, err = toAddress(owner); err != nil {
		return nil, err
	}
	if t.Royalty.Recipient, err = toAddress(recipient); err != nil {
		return nil, err
	}
	if approval != nil {
		if t.Approval, err = toAddress(approval); err != nil {
			return nil, err
		}
	}
	t.Metadata.Version = uint32(version)
	t.Royalty.Percentage = uint32(percentage)
	return &t, nil
}

func (s *Postgres) Balance(ctx context.Context, owner domain.Address) (int, error) {
	var n int
	err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registry_owner_tokens WHERE owner = $1`, owner[:]).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count owner tokens: %w", err)
	}
	return n, nil
}

func (s *Postgres) TokenByIndex(ctx context.Context, owner domain.Address, index int) (domain.TokenID, bool, error) {
	if index < 0 {
		return 0, false, nil
	}
	var id int64
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT token_id FROM registry_owner_tokens
		WHERE owner = $1
		ORDER BY position
		OFFSET $2 LIMIT 1
	`, owner[:], index).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("token by index: %w", err)
	}
	return domain.TokenID(id), true, nil
}

func (s *Postgres) OwnedTokens(ctx context.Context, owner domain.Address) (models.OwnerIndex, error) {
	var ids pq.Int64Array
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(array_agg(token_id ORDER BY position), '{}')
		FROM registry_owner_tokens
		WHERE owner = $1
	`, owner[:]).Scan(&ids)
	if err != nil {
		return nil, fmt.Errorf("list owner tokens: %w", err)
	}
	idx := make(models.OwnerIndex, 0, len(ids))
	for _, id := range ids {
		idx = append(idx, domain.TokenID(id))
	}
	return idx, nil
}

// postgresTx binds the Postgres reads to the transaction carried in ctx and
// adds the write half of Tx.
type postgresTx struct {
	*Postgres
}

func (t *postgresTx) SaveControl(ctx context.Context, control models.Control) error {
	_, err := t.exec(ctx).ExecContext(ctx, `
		UPDATE registry_control SET admin = $1, paused = $2, last_token_id = $3 WHERE id = 1
	`, control.Admin[:], control.Paused, int64(control.LastTokenID))
	if err != nil {
		return fmt.Errorf("save registry control: %w", err)
	}
	return nil
}

func (t *postgresTx) CreateToken(ctx context.Context, token *models.Token) error {
	_, err := t.exec(ctx).ExecContext(ctx, `
		INSERT INTO registry_tokens (
			token_id, owner, uri, description, license, metadata_version, metadata_frozen,
			royalty_recipient, royalty_percentage, approval
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, tokenArgs(token)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("create token %d: %w", token.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create token %d: %w", token.ID, err)
	}
	return nil
}

func (t *postgresTx) UpdateToken(ctx context.Context, token *models.Token) error {
	res, err := t.exec(ctx).ExecContext(ctx, `
		UPDATE registry_tokens SET
			owner = $2, uri = $3, description = $4, license = $5, metadata_version = $6,
			metadata_frozen = $7, royalty_recipient = $8, royalty_percentage = $9, approval = $10
		WHERE token_id = $1
	`, tokenArgs(token)...)
	if err != nil {
		return fmt.Errorf("update token %d: %w", token.ID, err)
	}
	return requireRow(res, fmt.Sprintf("update token %d", token.ID))
}

func (t *postgresTx) DeleteToken(ctx context.Context, id domain.TokenID) error {
	res, err := t.exec(ctx).ExecContext(ctx, `DELETE FROM registry_tokens WHERE token_id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete token %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("delete token %d", id))
}

func (t *postgresTx) AddOwned(ctx context.Context, owner domain.Address, id domain.TokenID) error {
	_, err := t.exec(ctx).ExecContext(ctx,
		`INSERT INTO registry_owner_tokens (owner, token_id) VALUES ($1, $2)`, owner[:], int64(id))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("index token %d: %w", id, sentinel.ErrConflict)
		}
		return fmt.Errorf("index token %d: %w", id, err)
	}
	return nil
}

func (t *postgresTx) RemoveOwned(ctx context.Context, owner domain.Address, id domain.TokenID) error {
	res, err := t.exec(ctx).ExecContext(ctx,
		`DELETE FROM registry_owner_tokens WHERE owner = $1 AND token_id = $2`, owner[:], int64(id))
	if err != nil {
		return fmt.Errorf("unindex token %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("unindex token %d", id))
}

func tokenArgs(t *models.Token) []any {
	var approval []byte
	if t.HasApproval() {
		approval = t.Approval[:]
	}
	return []any{
		int64(t.ID),
		t.Owner[:],
		t.Metadata.URI,
		t.Metadata.Description,
		t.Metadata.License,
		int64(t.Metadata.Version),
		t.Metadata.Frozen,
		t.Royalty.Recipient[:],
		int64(t.Royalty.Percentage),
		approval,
	}
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

func toAddress(b []byte) (domain.Address, error) {
	var a domain.Address
	if len(b) != domain.AddressLength {
		return a, fmt.Errorf("stored address has %d bytes", len(b))
	}
	copy(a[:], b)
	return a, nil
}
