package models

import (
	"slices"

	"atelier/pkg/domain"
)

// OwnerIndex is the ordered list of ids held by one owner. Ids appear in the
// order they were acquired; removal keeps the relative order of the rest.
type OwnerIndex []domain.TokenID

// Count is the owner's balance.
func (o OwnerIndex) Count() int {
	return len(o)
}

// At returns the id at index, or false when out of range.
func (o OwnerIndex) At(index int) (domain.TokenID, bool) {
	if index < 0 || index >= len(o) {
		return 0, false
	}
	return o[index], true
}

// Append adds id. A positive limit caps the list length.
func (o OwnerIndex) Append(id domain.TokenID, limit int) (OwnerIndex, error) {
	if limit > 0 && len(o) >= limit {
		return o, Reject(ErrCodeOwnerIndexFull, "owner holds the maximum number of tokens")
	}
	return append(slices.Clip(o), id), nil
}

// Remove drops id, returning a new slice. Missing ids are ignored.
func (o OwnerIndex) Remove(id domain.TokenID) OwnerIndex {
	out := make(OwnerIndex, 0, len(o))
	for _, v := range o {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports membership.
func (o OwnerIndex) Contains(id domain.TokenID) bool {
	return slices.Contains(o, id)
}
