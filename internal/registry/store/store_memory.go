package store

import (
	"context"
	"fmt"
	"sync"

	"atelier/internal/registry/models"
	"atelier/pkg/domain"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/sentinel"
)

// InMemory keeps registry state in maps. Writers are serialized by writeMu and
// stage their changes in a journal that is applied under mu only on success.
type InMemory struct {
	writeMu sync.Mutex

	mu      sync.RWMutex
	control models.Control
	tokens  map[domain.TokenID]models.Token
	owners  map[domain.Address]models.OwnerIndex
}

// NewInMemory creates a store seeded with the initial control state.
func NewInMemory(control models.Control) *InMemory {
	return &InMemory{
		control: control,
		tokens:  make(map[domain.TokenID]models.Token),
		owners:  make(map[domain.Address]models.OwnerIndex),
	}
}

func (s *InMemory) Control(_ context.Context) (models.Control, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.control, nil
}

func (s *InMemory) Token(_ context.Context, id domain.TokenID) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token(id)
}

func (s *InMemory) token(id domain.TokenID) (*models.Token, error) {
	t, ok := s.tokens[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *InMemory) Balance(_ context.Context, owner domain.Address) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owners[owner].Count(), nil
}

func (s *InMemory) TokenByIndex(_ context.Context, owner domain.Address, index int) (domain.TokenID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.owners[owner].At(index)
	return id, ok, nil
}

func (s *InMemory) OwnedTokens(_ context.Context, owner domain.Address) (models.OwnerIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(models.OwnerIndex(nil), s.owners[owner]...), nil
}

// RunInTx runs fn against a journal and commits it only if fn returns nil.
// Cancellation is checked once on entry; a started call always completes.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx = context.WithoutCancel(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	j := newJournal(s)
	if err := fn(ctx, j); err != nil {
		return err
	}
	s.commit(j)
	return nil
}

func (s *InMemory) commit(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j.control != nil {
		s.control = *j.control
	}
	for id, t := range j.tokens {
		if t == nil {
			delete(s.tokens, id)
			continue
		}
		s.tokens[id] = *t
	}
	for owner, idx := range j.owners {
		if len(idx) == 0 {
			delete(s.owners, owner)
			continue
		}
		s.owners[owner] = idx
	}
}

// journal overlays staged writes on the committed state. A nil token entry
// marks a deletion. The base maps are only written by commit, which runs on
// the same goroutine that holds writeMu, so reading them here is safe.
type journal struct {
	base    *InMemory
	control *models.Control
	tokens  map[domain.TokenID]*models.Token
	owners  map[domain.Address]models.OwnerIndex
}

func newJournal(base *InMemory) *journal {
	return &journal{
		base:   base,
		tokens: make(map[domain.TokenID]*models.Token),
		owners: make(map[domain.Address]models.OwnerIndex),
	}
}

func (j *journal) Control(_ context.Context) (models.Control, error) {
	if j.control != nil {
		return *j.control, nil
	}
	return j.base.control, nil
}

func (j *journal) SaveControl(_ context.Context, control models.Control) error {
	j.control = &control
	return nil
}

func (j *journal) Token(_ context.Context, id domain.TokenID) (*models.Token, error) {
	if t, staged := j.tokens[id]; staged {
		if t == nil {
			return nil, sentinel.ErrNotFound
		}
		cp := *t
		return &cp, nil
	}
	return j.base.token(id)
}

func (j *journal) exists(id domain.TokenID) bool {
	if t, staged := j.tokens[id]; staged {
		return t != nil
	}
	_, ok := j.base.tokens[id]
	return ok
}

func (j *journal) CreateToken(_ context.Context, token *models.Token) error {
	if j.exists(token.ID) {
		return fmt.Errorf("create token %d: %w", token.ID, sentinel.ErrConflict)
	}
	cp := *token
	j.tokens[token.ID] = &cp
	return nil
}

func (j *journal) UpdateToken(_ context.Context, token *models.Token) error {
	if !j.exists(token.ID) {
		return fmt.Errorf("update token %d: %w", token.ID, sentinel.ErrNotFound)
	}
	cp := *token
	j.tokens[token.ID] = &cp
	return nil
}

func (j *journal) DeleteToken(_ context.Context, id domain.TokenID) error {
	if !j.exists(id) {
		return fmt.Errorf("delete token %d: %w", id, sentinel.ErrNotFound)
	}
	j.tokens[id] = nil
	return nil
}

func (j *journal) index(owner domain.Address) models.OwnerIndex {
	if idx, staged := j.owners[owner]; staged {
		return idx
	}
	return j.base.owners[owner]
}

func (j *journal) Balance(_ context.Context, owner domain.Address) (int, error) {
	return j.index(owner).Count(), nil
}

func (j *journal) TokenByIndex(_ context.Context, owner domain.Address, index int) (domain.TokenID, bool, error) {
	id, ok := j.index(owner).At(index)
	return id, ok, nil
}

func (j *journal) OwnedTokens(_ context.Context, owner domain.Address) (models.OwnerIndex, error) {
	return append(models.OwnerIndex(nil), j.index(owner)...), nil
}

func (j *journal) AddOwned(_ context.Context, owner domain.Address, id domain.TokenID) error {
	idx := j.index(owner)
	if idx.Contains(id) {
		return fmt.Errorf("index token %d: %w", id, sentinel.ErrConflict)
	}
	// Append on a clipped copy so the committed slice is never shared.
	next, err := idx.Append(id, 0)
	if err != nil {
		return err
	}
	j.owners[owner] = next
	return nil
}

func (j *journal) RemoveOwned(_ context.Context, owner domain.Address, id domain.TokenID) error {
	idx := j.index(owner)
	if !idx.Contains(id) {
		return fmt.Errorf("unindex token %d: %w", id, sentinel.ErrNotFound)
	}
	j.owners[owner] = idx.Remove(id)
	return nil
}
