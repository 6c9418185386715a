package models

import "atelier/pkg/domain"

// MaxRoyaltyBasisPoints is 100% expressed in basis points.
const MaxRoyaltyBasisPoints uint32 = 10_000

// Royalty is the recorded royalty configuration of a record. It is set once at
// mint and is only ever read afterwards; no payment is made by the registry.
type Royalty struct {
	Recipient  domain.Address `json:"recipient"`
	Percentage uint32         `json:"percentage"`
}

// NewRoyalty validates a royalty configuration.
func NewRoyalty(recipient domain.Address, percentage uint32) (Royalty, error) {
	if recipient.IsZero() {
		return Royalty{}, Reject(ErrCodeNullAddress, "royalty recipient must not be the null address")
	}
	if percentage > MaxRoyaltyBasisPoints {
		return Royalty{}, Reject(ErrCodeInvalidRoyalty, "royalty percentage must be between 0 and 10000 basis points")
	}
	return Royalty{Recipient: recipient, Percentage: percentage}, nil
}
