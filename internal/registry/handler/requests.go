package handler

import (
	"math"
	"strings"

	"atelier/internal/registry/models"
	"atelier/pkg/domain"
	dErrors "atelier/pkg/domain-errors"
)

// Address fields arrive as 0x-prefixed hex strings. An empty field is the null
// identity; both are left for the service to reject with its registry code so
// authorization is still checked first.

func parseAddressField(field, value string) (domain.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.ZeroAddress, nil
	}
	addr, err := domain.ParseAddress(value)
	if err != nil {
		return domain.Address{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" is not a valid address")
	}
	return addr, nil
}

// MintRequest is the body of POST /tokens.
type MintRequest struct {
	URI               string `json:"uri"`
	Description       string `json:"description"`
	License           string `json:"license"`
	RoyaltyRecipient  string `json:"royalty_recipient"`
	RoyaltyPercentage int64  `json:"royalty_percentage"`

	recipient domain.Address
}

func (r *MintRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	recipient, err := parseAddressField("royalty_recipient", r.RoyaltyRecipient)
	if err != nil {
		return err
	}
	r.recipient = recipient
	return nil
}

// royaltyBasisPoints saturates out-of-range values so they still exceed the
// royalty ceiling and are rejected by the service in check order.
func (r *MintRequest) royaltyBasisPoints() uint32 {
	if r.RoyaltyPercentage < 0 || r.RoyaltyPercentage > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(r.RoyaltyPercentage)
}

func (r *MintRequest) toModel() models.MintRequest {
	return models.MintRequest{
		URI:               r.URI,
		Description:       r.Description,
		License:           r.License,
		RoyaltyRecipient:  r.recipient,
		RoyaltyPercentage: r.royaltyBasisPoints(),
	}
}

// TransferRequest is the body of POST /tokens/{id}/transfer.
type TransferRequest struct {
	Recipient string `json:"recipient"`

	recipient domain.Address
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := parseAddressField("recipient", r.Recipient)
	r.recipient = addr
	return err
}

// ApproveRequest is the body of POST /tokens/{id}/approval.
type ApproveRequest struct {
	Operator string `json:"operator"`

	operator domain.Address
}

func (r *ApproveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := parseAddressField("operator", r.Operator)
	r.operator = addr
	return err
}

// MetadataRequest is the body of PUT /tokens/{id}/metadata. It replaces every field.
type MetadataRequest struct {
	URI         string `json:"uri"`
	Description string `json:"description"`
	License     string `json:"license"`
}

func (r *MetadataRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

func (r *MetadataRequest) toModel() models.MetadataUpdate {
	return models.MetadataUpdate{URI: r.URI, Description: r.Description, License: r.License}
}

// TransferAdminRequest is the body of POST /admin/transfer.
type TransferAdminRequest struct {
	NewAdmin string `json:"new_admin"`

	newAdmin domain.Address
}

func (r *TransferAdminRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := parseAddressField("new_admin", r.NewAdmin)
	r.newAdmin = addr
	return err
}

// PauseRequest is the body of POST /admin/paused.
type PauseRequest struct {
	Paused *bool `json:"paused"`
}

func (r *PauseRequest) Validate() error {
	if r == nil || r.Paused == nil {
		return dErrors.New(dErrors.CodeValidation, "paused is required")
	}
	return nil
}
