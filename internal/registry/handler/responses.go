package handler

import (
	"atelier/internal/registry/models"
	"atelier/pkg/domain"
)

type MintResponse struct {
	TokenID domain.TokenID `json:"token_id"`
}

type PausedResponse struct {
	Paused bool `json:"paused"`
}

type VersionResponse struct {
	Version uint32 `json:"version"`
}

type StatusResponse struct {
	Admin       domain.Address `json:"admin"`
	Paused      bool           `json:"paused"`
	LastTokenID domain.TokenID `json:"last_token_id"`
}

type RoyaltyResponse struct {
	Recipient  domain.Address `json:"recipient"`
	Percentage uint32         `json:"percentage"`
}

// TokenResponse describes a record. Found is false for unknown or burned ids
// and every other field is then omitted.
type TokenResponse struct {
	Found    bool             `json:"found"`
	TokenID  domain.TokenID   `json:"token_id,omitempty"`
	Owner    *domain.Address  `json:"owner,omitempty"`
	Metadata *models.Metadata `json:"metadata,omitempty"`
	Royalty  *RoyaltyResponse `json:"royalty,omitempty"`
	Approval *domain.Address  `json:"approval,omitempty"`
}

func tokenResponse(t *models.Token) TokenResponse {
	resp := TokenResponse{
		Found:    true,
		TokenID:  t.ID,
		Owner:    &t.Owner,
		Metadata: &t.Metadata,
		Royalty:  &RoyaltyResponse{Recipient: t.Royalty.Recipient, Percentage: t.Royalty.Percentage},
	}
	if t.HasApproval() {
		resp.Approval = &t.Approval
	}
	return resp
}

type OwnerResponse struct {
	Owner   domain.Address   `json:"owner"`
	Balance int              `json:"balance"`
	Tokens  []domain.TokenID `json:"tokens"`
}

type TokenByIndexResponse struct {
	Found   bool           `json:"found"`
	TokenID domain.TokenID `json:"token_id,omitempty"`
}
