package multisig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnac-io/fundquorum/pkg/core"
)

func TestConfirmationSet(t *testing.T) {
	s := NewConfirmationSet()
	require.True(t, s.Add(ownerC))
	require.True(t, s.Add(ownerA))
	require.False(t, s.Add(ownerA))
	require.Equal(t, 2, s.Len())
	require.Equal(t, []core.Address{ownerA, ownerC}, s.Owners())
	require.True(t, s.Has(ownerC))
	require.False(t, s.Has(ownerB))

	require.False(t, s.Remove(ownerB))
	require.True(t, s.Remove(ownerC))
	require.Equal(t, 1, s.Len())
	require.True(t, s.Add(ownerC))
	require.Equal(t, 2, s.Len())
}
