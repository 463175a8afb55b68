package g

import (
	"encoding/binary"
	"hash/maphash"
)

// HashUint64 is a hasher for xsync typed maps keyed by sequential ids.
func HashUint64(seed maphash.Seed, v uint64) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	h.Write(b[:])
	return h.Sum64()
}
