package models

import "atelier/pkg/domain"

// MaxSupply caps the number of records that can ever be minted.
const MaxSupply domain.TokenID = 1_000_000

// Control is the registry-wide state: the administrator, the pause flag, and
// the id counter. It starts as {Admin: deployer, Paused: false, LastTokenID: 0}.
//
// Invariants:
//   - Admin is never the null identity
//   - LastTokenID equals the highest id ever minted and never decreases
type Control struct {
	Admin       domain.Address
	Paused      bool
	LastTokenID domain.TokenID
}

// NewControl returns the initial control state for a freshly deployed registry.
func NewControl(admin domain.Address) (Control, error) {
	if admin.IsZero() {
		return Control{}, Reject(ErrCodeNullAddress, "admin must not be the null address")
	}
	return Control{Admin: admin}, nil
}

func (c Control) RequireAdmin(caller domain.Address) error {
	if caller != c.Admin {
		return Reject(ErrCodeNotAdmin, "caller is not the registry admin")
	}
	return nil
}

// RequireActive rejects every gated mutation while the registry is paused.
func (c Control) RequireActive() error {
	if c.Paused {
		return Reject(ErrCodePaused, "registry is paused")
	}
	return nil
}

// NextTokenID returns the id the next mint would allocate.
func (c Control) NextTokenID() (domain.TokenID, error) {
	if c.LastTokenID >= MaxSupply {
		return 0, Reject(ErrCodeMaxSupply, "max supply reached")
	}
	return c.LastTokenID + 1, nil
}

// TransferAdmin replaces the administrator.
func (c *Control) TransferAdmin(caller, newAdmin domain.Address) error {
	if err := c.RequireAdmin(caller); err != nil {
		return err
	}
	if newAdmin.IsZero() {
		return Reject(ErrCodeNullAddress, "new admin must not be the null address")
	}
	c.Admin = newAdmin
	return nil
}

// SetPaused sets the flag unconditionally; setting the current value is a no-op success.
func (c *Control) SetPaused(caller domain.Address, paused bool) error {
	if err := c.RequireAdmin(caller); err != nil {
		return err
	}
	c.Paused = paused
	return nil
}
