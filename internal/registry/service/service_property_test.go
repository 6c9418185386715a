package service

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"atelier/internal/registry/events"
	"atelier/internal/registry/models"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
)

// registryModel drives random call sequences against a Service and checks the
// bookkeeping invariants after every step.
type registryModel struct {
	ctx      context.Context
	service  *Service
	recorder *events.Recorder
	actors   []domain.Address

	minted   domain.TokenID
	live     map[domain.TokenID]bool
	versions map[domain.TokenID]uint32
}

func newRegistryModel(limit int) *registryModel {
	rec := events.NewRecorder()
	return &registryModel{
		ctx:      context.Background(),
		service:  New(store.NewInMemory(models.Control{Admin: admin}), WithSink(rec), WithOwnerIndexLimit(limit)),
		recorder: rec,
		actors:   []domain.Address{admin, bob, carol, operator},
		live:     map[domain.TokenID]bool{},
		versions: map[domain.TokenID]uint32{},
	}
}

func (m *registryModel) actor(t *rapid.T, label string) domain.Address {
	return rapid.SampledFrom(m.actors).Draw(t, label)
}

// id draws mostly live ids with the occasional unknown one.
func (m *registryModel) id(t *rapid.T) domain.TokenID {
	return domain.TokenID(rapid.Uint64Range(1, uint64(m.minted)+2).Draw(t, "id"))
}

func (m *registryModel) actions() map[string]func(*rapid.T) {
	return map[string]func(*rapid.T){
		"mint": func(t *rapid.T) {
			caller := rapid.SampledFrom([]domain.Address{admin, admin, bob}).Draw(t, "caller")
			before := len(m.recorder.Events())
			id, err := m.service.Mint(m.ctx, caller, validMint())
			if err != nil {
				if len(m.recorder.Events()) != before {
					t.Fatalf("rejected mint published events")
				}
				return
			}
			if id != m.minted+1 {
				t.Fatalf("mint returned %d, want sequential %d", id, m.minted+1)
			}
			m.minted = id
			m.live[id] = true
			m.versions[id] = 1
		},
		"transfer": func(t *rapid.T) {
			id := m.id(t)
			_ = m.service.Transfer(m.ctx, m.actor(t, "caller"), id, m.actor(t, "to"))
		},
		"approve": func(t *rapid.T) {
			_ = m.service.Approve(m.ctx, m.actor(t, "caller"), m.id(t), m.actor(t, "operator"))
		},
		"revoke": func(t *rapid.T) {
			_ = m.service.RevokeApproval(m.ctx, m.actor(t, "caller"), m.id(t))
		},
		"burn": func(t *rapid.T) {
			id := m.id(t)
			if err := m.service.Burn(m.ctx, m.actor(t, "caller"), id); err == nil {
				delete(m.live, id)
				delete(m.versions, id)
			}
		},
		"update": func(t *rapid.T) {
			id := m.id(t)
			version, err := m.service.UpdateMetadata(m.ctx, m.actor(t, "caller"), id, models.MetadataUpdate{
				URI: "ipfs://design67890", License: "MIT License 123",
			})
			if err != nil {
				return
			}
			if version != m.versions[id]+1 {
				t.Fatalf("update of %d returned version %d, want %d", id, version, m.versions[id]+1)
			}
			m.versions[id] = version
		},
		"freeze": func(t *rapid.T) {
			_ = m.service.FreezeMetadata(m.ctx, m.actor(t, "caller"), m.id(t))
		},
		"pause": func(t *rapid.T) {
			_, _ = m.service.SetPaused(m.ctx, admin, rapid.Bool().Draw(t, "paused"))
		},
		"": m.check,
	}
}

func (m *registryModel) check(t *rapid.T) {
	last, err := m.service.LastTokenID(m.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last != m.minted {
		t.Fatalf("last token id %d, want %d", last, m.minted)
	}

	seen := map[domain.TokenID]domain.Address{}
	total := 0
	for _, who := range m.actors {
		owned, err := m.service.OwnedTokens(m.ctx, who)
		if err != nil {
			t.Fatal(err)
		}
		balance, err := m.service.Balance(m.ctx, who)
		if err != nil {
			t.Fatal(err)
		}
		if balance != len(owned) {
			t.Fatalf("balance of %s is %d but index holds %d", who, balance, len(owned))
		}
		total += balance
		for _, id := range owned {
			if prev, dup := seen[id]; dup {
				t.Fatalf("token %d listed under %s and %s", id, prev, who)
			}
			seen[id] = who
			owner, ok, err := m.service.Owner(m.ctx, id)
			if err != nil || !ok || owner != who {
				t.Fatalf("token %d listed under %s but owned by %s (ok=%v, err=%v)", id, who, owner, ok, err)
			}
		}
	}
	if total != len(m.live) {
		t.Fatalf("sum of balances %d, want %d live tokens", total, len(m.live))
	}
	for id := range m.live {
		if _, ok := seen[id]; !ok {
			t.Fatalf("live token %d missing from every owner index", id)
		}
		meta, ok, err := m.service.Metadata(m.ctx, id)
		if err != nil || !ok {
			t.Fatalf("live token %d has no metadata", id)
		}
		if meta.Version != m.versions[id] {
			t.Fatalf("token %d at version %d, want %d", id, meta.Version, m.versions[id])
		}
	}
}

func TestRegistryInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newRegistryModel(0)
		t.Repeat(m.actions())
	})
}

func TestRegistryInvariantsWithOwnerLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newRegistryModel(3)
		t.Repeat(m.actions())
	})
}
