package mirgen

import (
	"github.com/BarrensZeppelin/pmmap"
)

type tagHasher struct{}

func (tagHasher) Hash(t Tag) uint64 {
	x := uint64(t)
	x ^= x >> 33
	x *= 0xFF51AFD7ED558CCD
	x ^= x >> 33
	return x
}

func (tagHasher) Equal(a, b Tag) bool {
	return a == b
}

// TagHasher hashes borrow tags for persistent maps, e.g. to snapshot the
// set of invalidated pointers across generation steps.
var TagHasher pmmap.Hasher[Tag] = tagHasher{}

type placeHasher struct{}

func (placeHasher) Hash(p PlaceIndex) uint64 {
	return tagHasher{}.Hash(Tag(p))
}

func (placeHasher) Equal(a, b PlaceIndex) bool {
	return a == b
}

// PlaceHasher hashes place handles for persistent maps.
var PlaceHasher pmmap.Hasher[PlaceIndex] = placeHasher{}
