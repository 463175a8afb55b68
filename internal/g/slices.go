package g

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func ToStrings[T ~string](ts []T) []string {
	result := make([]string, 0, len(ts))
	for _, t := range ts {
		result = append(result, string(t))
	}
	return result
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
