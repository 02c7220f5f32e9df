package membership

import (
	"github.com/google/btree"
)

// degree 32 keeps nodes around a cache line multiple for uint32 keys
const treeDegree = 32

// TreeStore keeps seen values in an ordered B-tree.
type TreeStore struct {
	tree *btree.BTreeG[uint32]
}

func NewTreeStore() *TreeStore {
	return &TreeStore{tree: btree.NewOrderedG[uint32](treeDegree)}
}

func (s *TreeStore) Insert(v uint32) bool {
	_, found := s.tree.ReplaceOrInsert(v)
	return !found
}

func (s *TreeStore) Len() int {
	return s.tree.Len()
}

// Ascend calls fn for every stored value in ascending order until fn returns false.
func (s *TreeStore) Ascend(fn func(v uint32) bool) {
	s.tree.Ascend(fn)
}
