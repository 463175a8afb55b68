package core

import (
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
)

// Address identifies an owner, a call target, a token or a recipient on the Ledger.
// The canonical form is lower-case, 0x-prefixed, 20 bytes of hex.
type Address string

const addressLen = 20

// ZeroAddress is the null identifier.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", errors.Errorf("address %q: missing 0x prefix", s)
	}
	raw := s[2:]
	if len(raw) != addressLen*2 {
		return "", errors.Errorf("address %q: want %d hex digits, got %d", s, addressLen*2, len(raw))
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", errors.Wrapf(err, "address %q", s)
	}
	return Address("0x" + strings.ToLower(raw)), nil
}

func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether the address is empty or the all-zero address.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// OwnerSet is the fixed authorization group. It is immutable after construction.
type OwnerSet struct {
	owners []Address
	index  map[Address]struct{}
}

func NewOwnerSet(owners []Address) (OwnerSet, error) {
	set := OwnerSet{
		owners: make([]Address, 0, len(owners)),
		index:  make(map[Address]struct{}, len(owners)),
	}
	for _, o := range owners {
		if o.IsZero() {
			return OwnerSet{}, errors.Wrap(ErrInvalidOwner, "zero address")
		}
		if _, ok := set.index[o]; ok {
			return OwnerSet{}, errors.Wrapf(ErrInvalidOwner, "duplicate owner %v", o)
		}
		set.index[o] = struct{}{}
		set.owners = append(set.owners, o)
	}
	if len(set.owners) == 0 {
		return OwnerSet{}, errors.Wrap(ErrInvalidOwner, "empty owner set")
	}
	return set, nil
}

func (s OwnerSet) Contains(a Address) bool {
	_, ok := s.index[a]
	return ok
}

func (s OwnerSet) Len() int {
	return len(s.owners)
}

// Owners returns a copy in configuration order.
func (s OwnerSet) Owners() []Address {
	res := make([]Address, len(s.owners))
	copy(res, s.owners)
	return res
}
