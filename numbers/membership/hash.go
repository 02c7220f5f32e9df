package membership

// HashStore keeps seen values in a map.
type HashStore struct {
	seen map[uint32]struct{}
}

func NewHashStore() *HashStore {
	return &HashStore{seen: make(map[uint32]struct{})}
}

func (s *HashStore) Insert(v uint32) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	return true
}

func (s *HashStore) Len() int {
	return len(s.seen)
}
