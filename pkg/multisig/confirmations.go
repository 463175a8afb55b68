package multisig

import (
	"golang.org/x/exp/slices"

	"github.com/arnac-io/fundquorum/pkg/core"
)

// ConfirmationSet tracks which owners currently confirm a transaction.
// An owner is either in the set or not; there is no history.
// ConfirmationSet is not safe for concurrent use, the owning record guards it.
type ConfirmationSet struct {
	owners map[core.Address]struct{}
}

func NewConfirmationSet() *ConfirmationSet {
	return &ConfirmationSet{owners: map[core.Address]struct{}{}}
}

// Add returns false if the owner has already confirmed.
func (s *ConfirmationSet) Add(owner core.Address) bool {
	if _, ok := s.owners[owner]; ok {
		return false
	}
	s.owners[owner] = struct{}{}
	return true
}

// Remove returns false if the owner has not confirmed.
func (s *ConfirmationSet) Remove(owner core.Address) bool {
	if _, ok := s.owners[owner]; !ok {
		return false
	}
	delete(s.owners, owner)
	return true
}

func (s *ConfirmationSet) Has(owner core.Address) bool {
	_, ok := s.owners[owner]
	return ok
}

func (s *ConfirmationSet) Len() int {
	return len(s.owners)
}

// Owners returns the confirming owners sorted by address.
func (s *ConfirmationSet) Owners() []core.Address {
	res := make([]core.Address, 0, len(s.owners))
	for o := range s.owners {
		res = append(res, o)
	}
	slices.Sort(res)
	return res
}
