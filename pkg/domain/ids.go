package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	dErrors "atelier/pkg/domain-errors"
)

// AddressLength is the byte length of an identity.
const AddressLength = 20

// Address identifies an account that can own, receive, or operate records.
// The zero value is the reserved null identity and is never a valid participant.
type Address [AddressLength]byte

// ZeroAddress is the null identity.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed, 40 hex digit identity. The null identity
// parses successfully; callers decide whether it is acceptable.
func ParseAddress(s string) (Address, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(s), "0x")
	if !ok {
		raw, ok = strings.CutPrefix(strings.TrimSpace(s), "0X")
	}
	if !ok {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must start with 0x")
	}
	if len(raw) != AddressLength*2 {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be 40 hex digits")
	}
	var a Address
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return Address{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "address is not valid hex")
	}
	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// TokenID is a registry-assigned record identifier. Ids start at 1; 0 means none.
type TokenID uint64

// ParseTokenID parses a decimal token id reference. Zero parses: it names no
// record, and lookups report it as absent.
func ParseTokenID(s string) (TokenID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "token id must be a non-negative integer")
	}
	return TokenID(n), nil
}

func (id TokenID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
