package models

import "unicode/utf8"

// Length bounds for metadata fields, in characters.
const (
	MinURILength         = 10
	MaxURILength         = 256
	MaxDescriptionLength = 1024
	MinLicenseLength     = 10
	MaxLicenseLength     = 256
)

// Metadata is the versioned, freezable descriptive payload of a record.
//
// Invariants:
//   - Version starts at 1 and grows by exactly 1 per update
//   - Frozen moves false -> true once and never back
//   - Nothing changes once Frozen is true
type Metadata struct {
	URI         string `json:"uri"`
	Description string `json:"description"`
	License     string `json:"license"`
	Version     uint32 `json:"version"`
	Frozen      bool   `json:"frozen"`
}

// NewMetadata validates the payload and returns version 1, unfrozen.
func NewMetadata(uri, description, license string) (Metadata, error) {
	if err := validateMetadataFields(uri, description, license); err != nil {
		return Metadata{}, err
	}
	return Metadata{URI: uri, Description: description, License: license, Version: 1}, nil
}

// ValidateUpdate checks the replacement payload shape. Frozen state is checked
// separately by CanUpdate so callers control rejection order.
func ValidateUpdate(uri, description, license string) error {
	return validateMetadataFields(uri, description, license)
}

func (m *Metadata) CanUpdate() error {
	if m.Frozen {
		return Reject(ErrCodeMetadataFrozen, "metadata is frozen")
	}
	return nil
}

// ApplyUpdate replaces the payload and bumps the version.
// Call ValidateUpdate and CanUpdate first.
func (m *Metadata) ApplyUpdate(uri, description, license string) {
	m.URI = uri
	m.Description = description
	m.License = license
	m.Version++
}

func (m *Metadata) CanFreeze() error {
	if m.Frozen {
		return Reject(ErrCodeMetadataFrozen, "metadata is already frozen")
	}
	return nil
}

func (m *Metadata) ApplyFreeze() {
	m.Frozen = true
}

func validateMetadataFields(uri, description, license string) error {
	if n := utf8.RuneCountInString(uri); n < MinURILength || n > MaxURILength {
		return Reject(ErrCodeInvalidStringLen, "uri must be between 10 and 256 characters")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return Reject(ErrCodeInvalidStringLen, "description must be at most 1024 characters")
	}
	if n := utf8.RuneCountInString(license); n < MinLicenseLength || n > MaxLicenseLength {
		return Reject(ErrCodeInvalidStringLen, "license must be between 10 and 256 characters")
	}
	return nil
}
