package models

import (
	"time"

	"github.com/google/uuid"

	"atelier/pkg/domain"
)

// EventKind names an externally observable registry side effect.
type EventKind string

const (
	EventMint           EventKind = "mint"
	EventRoyalty        EventKind = "royalty"
	EventTransfer       EventKind = "transfer"
	EventBurn           EventKind = "burn"
	EventMetadataUpdate EventKind = "metadata-update"
	EventMetadataFrozen EventKind = "metadata-frozen"
)

// Event is emitted after a successful call for external indexers. Keep it
// transport-agnostic so sinks can encode it however they need. Fields not
// relevant to a kind are left zero and omitted from JSON.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Kind      EventKind      `json:"event"`
	TokenID   domain.TokenID `json:"token_id"`
	At        time.Time      `json:"at"`
	RequestID string         `json:"request_id,omitempty"`

	// mint
	Owner *domain.Address `json:"owner,omitempty"`
	// transfer
	From *domain.Address `json:"from,omitempty"`
	To   *domain.Address `json:"to,omitempty"`
	// royalty: informational only, no value moves
	Recipient  *domain.Address `json:"recipient,omitempty"`
	Percentage *uint32         `json:"percentage,omitempty"`
	// metadata-update
	Version uint32 `json:"version,omitempty"`
}

func newEvent(kind EventKind, tokenID domain.TokenID) Event {
	return Event{ID: uuid.New(), Kind: kind, TokenID: tokenID}
}

func addr(a domain.Address) *domain.Address {
	return &a
}

func MintEvent(tokenID domain.TokenID, owner domain.Address) Event {
	e := newEvent(EventMint, tokenID)
	e.Owner = addr(owner)
	return e
}

// RoyaltyEvent records the configured royalty at transfer time.
func RoyaltyEvent(tokenID domain.TokenID, r Royalty) Event {
	e := newEvent(EventRoyalty, tokenID)
	e.Recipient = addr(r.Recipient)
	pct := r.Percentage
	e.Percentage = &pct
	return e
}

func TransferEvent(tokenID domain.TokenID, from, to domain.Address) Event {
	e := newEvent(EventTransfer, tokenID)
	e.From = addr(from)
	e.To = addr(to)
	return e
}

func BurnEvent(tokenID domain.TokenID) Event {
	return newEvent(EventBurn, tokenID)
}

func MetadataUpdateEvent(tokenID domain.TokenID, version uint32) Event {
	e := newEvent(EventMetadataUpdate, tokenID)
	e.Version = version
	return e
}

func MetadataFrozenEvent(tokenID domain.TokenID) Event {
	return newEvent(EventMetadataFrozen, tokenID)
}
