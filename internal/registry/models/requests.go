package models

import "atelier/pkg/domain"

// MintRequest carries the caller-supplied fields of a mint.
type MintRequest struct {
	URI               string         `json:"uri"`
	Description       string         `json:"description"`
	License           string         `json:"license"`
	RoyaltyRecipient  domain.Address `json:"royalty_recipient"`
	RoyaltyPercentage uint32         `json:"royalty_percentage"`
}

// MetadataUpdate carries a full replacement payload.
type MetadataUpdate struct {
	URI         string `json:"uri"`
	Description string `json:"description"`
	License     string `json:"license"`
}
