package data

import "math/rand"

// Sampler yields dataset indices, one per call.
type Sampler interface {
	Next() int
}

// SequentialSampler walks the dataset in order and wraps around.
type SequentialSampler struct {
	n   int
	pos int
}

// NewSequentialSampler creates a sampler over n examples.
func NewSequentialSampler(n int) *SequentialSampler {
	return &SequentialSampler{n: n}
}

func (s *SequentialSampler) Next() int {
	i := s.pos
	s.pos = (s.pos + 1) % s.n
	return i
}

// ReplacementSampler draws uniformly with replacement, so any index can recur
// and more draws than dataset entries are valid.
type ReplacementSampler struct {
	n   int
	rng *rand.Rand
}

// NewReplacementSampler creates a with-replacement sampler over n examples.
// The seed makes a whole evaluation run reproducible.
func NewReplacementSampler(n int, seed int64) *ReplacementSampler {
	return &ReplacementSampler{n: n, rng: rand.New(rand.NewSource(seed))}
}

func (s *ReplacementSampler) Next() int {
	return s.rng.Intn(s.n)
}
