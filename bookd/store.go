package main

// PositionStore is the hash table owning every Position. Buckets are keyed
// by the canonical board hash and scanned linearly. Buckets hold pointers,
// so growing a bucket never moves a Position: a *Position stays valid until
// the position is removed.
type PositionStore struct {
	buckets [][]*Position
	mask    uint64
	count   int
}

const (
	defaultStoreBuckets = 1 << 16
	storeBucketTarget   = 16
)

// NewPositionStore sizes the table for expected nodes: the smallest power
// of two with bucketCount*16 >= expected. The bucket count is fixed for the
// life of the store; average bucket depth grows past the target if the
// estimate was low.
func NewPositionStore(expected int) *PositionStore {
	buckets := uint64(1)
	for buckets*storeBucketTarget < uint64(expected) {
		buckets *= 2
	}
	if expected <= 0 {
		buckets = defaultStoreBuckets
	}
	return &PositionStore{
		buckets: make([][]*Position, buckets),
		mask:    buckets - 1,
	}
}

func (s *PositionStore) bucketIndex(b Board) int {
	return int(HashBoard(b) & s.mask)
}

// Probe canonicalizes the board and returns the stored position along with
// the symmetry index mapping the query board onto the stored one.
func (s *PositionStore) Probe(b Board) (*Position, int) {
	canonical, sym := Canonicalize(b)
	return s.ProbeCanonical(canonical), sym
}

// ProbeCanonical looks up an already-canonical board.
func (s *PositionStore) ProbeCanonical(b Board) *Position {
	for _, p := range s.buckets[s.bucketIndex(b)] {
		if p.Board == b {
			return p
		}
	}
	return nil
}

// Insert stores a position whose board must already be canonical. A
// duplicate is rejected silently and reported as false.
func (s *PositionStore) Insert(p *Position) bool {
	idx := s.bucketIndex(p.Board)
	bucket := s.buckets[idx]
	for _, stored := range bucket {
		if stored.Board == p.Board {
			return false
		}
	}
	s.buckets[idx] = appendToBucket(bucket, p)
	s.count++
	return true
}

// appendToBucket grows the bucket array by 50%, minimum one slot.
func appendToBucket(bucket []*Position, p *Position) []*Position {
	if len(bucket) == cap(bucket) {
		grown := make([]*Position, len(bucket), growCapacity(cap(bucket)))
		copy(grown, bucket)
		bucket = grown
	}
	return append(bucket, p)
}

// Remove deletes the position, compacting its bucket. Returns false if the
// position was not stored.
func (s *PositionStore) Remove(p *Position) bool {
	idx := s.bucketIndex(p.Board)
	bucket := s.buckets[idx]
	for i, stored := range bucket {
		if stored == p {
			copy(bucket[i:], bucket[i+1:])
			bucket[len(bucket)-1] = nil
			s.buckets[idx] = bucket[:len(bucket)-1]
			s.count--
			return true
		}
	}
	return false
}

func (s *PositionStore) Count() int {
	return s.count
}

func (s *PositionStore) BucketCount() int {
	return len(s.buckets)
}

// ForEach visits every stored position. The callback must not insert or
// remove.
func (s *PositionStore) ForEach(fn func(*Position)) {
	for _, bucket := range s.buckets {
		for _, p := range bucket {
			fn(p)
		}
	}
}

// All snapshots the stored positions; safe to mutate the store while
// iterating the snapshot.
func (s *PositionStore) All() []*Position {
	all := make([]*Position, 0, s.count)
	for _, bucket := range s.buckets {
		all = append(all, bucket...)
	}
	return all
}
