package multisig

import (
	"github.com/go-faster/errors"

	"github.com/arnac-io/fundquorum/pkg/core"
)

type Config struct {
	Owners   core.OwnerSet
	Required int
	// Self is the multisig's own address. A changeRequirement proposal aimed at it
	// changes the threshold once executed.
	Self core.Address
	// Fund is the fund contract. confirmWithdrawal proposals must target it.
	Fund core.Address
}

func (c Config) Validate() error {
	if c.Owners.Len() == 0 {
		return errors.Wrap(core.ErrInvalidOwner, "owner set is empty")
	}
	if c.Required < 1 || c.Required > c.Owners.Len() {
		return errors.Wrapf(core.ErrInvalidThreshold, "required %d with %d owners", c.Required, c.Owners.Len())
	}
	return nil
}
