package kv

import (
	"iter"

	"github.com/indigo-web/utils/strcomp"
)

type Pair struct {
	Key, Value string
}

// Storage keeps headers as an ordered list of pairs. Headers are few, so a linear scan beats
// a map, and the order and the case of keys are preserved as they were added. Lookups ignore
// the case.
type Storage struct {
	pairs []Pair
}

func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns a Storage with room for n pairs.
func NewPrealloc(n int) *Storage {
	return &Storage{pairs: make([]Pair, 0, n)}
}

// Add appends the pair. Existing pairs of the same key are kept.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{Key: key, Value: value})
	return s
}

// Get returns the first value of the key.
func (s *Storage) Get(key string) (value string, found bool) {
	if i := s.index(key); i != -1 {
		return s.pairs[i].Value, true
	}

	return "", false
}

// Value is Get without the flag.
func (s *Storage) Value(key string) string {
	value, _ := s.Get(key)
	return value
}

func (s *Storage) Has(key string) bool {
	return s.index(key) != -1
}

// Values iterates over every value of the key.
func (s *Storage) Values(key string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, pair := range s.pairs {
			if strcomp.EqualFold(pair.Key, key) && !yield(pair.Value) {
				return
			}
		}
	}
}

// Pairs iterates over all the pairs in the order they were added.
func (s *Storage) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range s.pairs {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

func (s *Storage) Len() int {
	return len(s.pairs)
}

func (s *Storage) Empty() bool {
	return len(s.pairs) == 0
}

// Expose returns the underlying slice. It must not be retained past the next Add or Clear.
func (s *Storage) Expose() []Pair {
	return s.pairs
}

// Clear drops all the pairs, keeping the memory.
func (s *Storage) Clear() *Storage {
	s.pairs = s.pairs[:0]
	return s
}

func (s *Storage) index(key string) int {
	for i, pair := range s.pairs {
		if strcomp.EqualFold(pair.Key, key) {
			return i
		}
	}

	return -1
}
