package withdrawal

import "github.com/arnac-io/fundquorum/pkg/core"

// CheckPolicy decides whether the checks attached to an off-chain withdrawal confirm it.
type CheckPolicy interface {
	Satisfied(checks []core.Check) bool
}

// MinChecks is satisfied by at least n attached checks.
type MinChecks int

func (n MinChecks) Satisfied(checks []core.Check) bool {
	if n < 1 {
		n = 1
	}
	return len(checks) >= int(n)
}
