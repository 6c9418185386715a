package models

import "atelier/pkg/domain"

// Token is the record aggregate: ownership plus the per-record component entries
// (metadata, royalty configuration, approval slot). A burned id has no Token.
type Token struct {
	ID       domain.TokenID
	Owner    domain.Address
	Metadata Metadata
	Royalty  Royalty
	// Approval is the single delegated operator; the null address means none.
	Approval domain.Address
}

// HasApproval reports whether a delegate is set.
func (t *Token) HasApproval() bool {
	return !t.Approval.IsZero()
}

func (t *Token) RequireOwner(caller domain.Address) error {
	if caller != t.Owner {
		return Reject(ErrCodeNotAuthorized, "caller is not the token owner")
	}
	return nil
}

// RequireOwnerOrApproved admits the owner or the current delegate.
func (t *Token) RequireOwnerOrApproved(caller domain.Address) error {
	if caller == t.Owner {
		return nil
	}
	if t.HasApproval() && caller == t.Approval {
		return nil
	}
	return Reject(ErrCodeNotAuthorized, "caller is not the token owner or approved operator")
}

// CanApprove enforces at most one concurrent delegate.
func (t *Token) CanApprove(operator domain.Address) error {
	if operator.IsZero() {
		return Reject(ErrCodeNullAddress, "operator must not be the null address")
	}
	if t.HasApproval() {
		return Reject(ErrCodeAlreadyApproved, "token already has an approved operator")
	}
	return nil
}

func (t *Token) ApplyApproval(operator domain.Address) {
	t.Approval = operator
}

func (t *Token) ClearApproval() {
	t.Approval = domain.ZeroAddress
}

// ApplyTransfer moves ownership and drops any delegate.
func (t *Token) ApplyTransfer(to domain.Address) {
	t.Owner = to
	t.ClearApproval()
}
