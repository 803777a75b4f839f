package store

import (
	"iter"

	"github.com/chewxy/math32"
)

// DefaultCapacity is the number of samples the board can hold (about 20 KB of float32).
const DefaultCapacity = 5000

// Store is a fixed-capacity ordered buffer of voltage samples.
// It is append-only while recording; appends past capacity are rejected.
type Store struct {
	data []float32
	n    int
}

// Stats summarises the stored samples.
type Stats struct {
	Min float32
	Max float32
	Avg float32
}

// New allocates a store holding at most capacity samples.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{data: make([]float32, capacity)}
}

// Append adds v if there is room. It returns false when the store is full.
func (s *Store) Append(v float32) bool {
	if s.n >= len(s.data) {
		return false
	}
	s.data[s.n] = v
	s.n++
	return true
}

// Clear empties the store without releasing memory.
func (s *Store) Clear() {
	s.n = 0
}

// At returns the sample at index i.
func (s *Store) At(i int) (float32, bool) {
	if i < 0 || i >= s.n {
		return 0, false
	}
	return s.data[i], true
}

// Len returns the number of stored samples.
func (s *Store) Len() int { return s.n }

// Cap returns the maximum number of samples.
func (s *Store) Cap() int { return len(s.data) }

// Full reports whether no more samples can be appended.
func (s *Store) Full() bool { return s.n >= len(s.data) }

// SizeBytes returns the memory taken by stored samples.
func (s *Store) SizeBytes() int { return s.n * 4 }

// All yields stored samples in insertion order.
func (s *Store) All() iter.Seq2[int, float32] {
	return func(yield func(int, float32) bool) {
		for i := range s.n {
			if !yield(i, s.data[i]) {
				return
			}
		}
	}
}

// Stats returns min, max and mean of the stored samples.
// ok is false for an empty store.
func (s *Store) Stats() (st Stats, ok bool) {
	if s.n == 0 {
		return Stats{}, false
	}
	st.Min, st.Max = s.data[0], s.data[0]
	var sum float32
	for _, v := range s.data[:s.n] {
		st.Min = math32.Min(st.Min, v)
		st.Max = math32.Max(st.Max, v)
		sum += v
	}
	st.Avg = sum / float32(s.n)
	return st, true
}
