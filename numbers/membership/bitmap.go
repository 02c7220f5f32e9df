package membership

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// BitmapStore keeps one presence bit per value in [0, maxValue).
type BitmapStore struct {
	bits     *bitset.BitSet
	maxValue uint32
	count    int
}

// NewBitmapStore allocates the full bitmap up front to trigger any memory issues on startup.
func NewBitmapStore(maxValue uint32) *BitmapStore {
	return &BitmapStore{
		bits:     bitset.New(uint(maxValue)),
		maxValue: maxValue,
	}
}

// Insert panics if v is outside the configured domain, values must be validated before this point.
func (s *BitmapStore) Insert(v uint32) bool {
	if v >= s.maxValue {
		panic(fmt.Sprintf("membership: value %d outside bitmap domain [0, %d)", v, s.maxValue))
	}
	idx := uint(v)
	if s.bits.Test(idx) {
		return false
	}
	s.bits.Set(idx)
	s.count++
	return true
}

func (s *BitmapStore) Len() int {
	return s.count
}

// MaxValue is the exclusive upper bound of the domain.
func (s *BitmapStore) MaxValue() uint32 {
	return s.maxValue
}
