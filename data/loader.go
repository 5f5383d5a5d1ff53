package data

import (
	"fmt"
	"sort"
)

// Batch is one loader draw. Examples are kept ragged (no padding) and sorted
// by descending frame count, which the encoder and the teacher-forced decode
// both require.
type Batch struct {
	Features     [][][]float64
	InputLengths []int
	Targets      [][]int
	Transcripts  []string
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int { return len(b.Features) }

// Loader draws fixed-size batches from a dataset through a pluggable
// sampling strategy. Not safe for concurrent use; the evaluator assumes
// exclusive ownership for the duration of a run.
type Loader struct {
	ds        Dataset
	batchSize int
	sampler   Sampler
}

// NewLoader creates a loader with sequential sampling.
func NewLoader(ds Dataset, batchSize int) (*Loader, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("data: empty dataset")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("data: batch size %d", batchSize)
	}
	return &Loader{ds: ds, batchSize: batchSize, sampler: NewSequentialSampler(ds.Len())}, nil
}

// SetSampler swaps the sampling strategy. Must not be called while a caller
// is mid-iteration.
func (l *Loader) SetSampler(s Sampler) { l.sampler = s }

// DatasetLen returns the underlying dataset size.
func (l *Loader) DatasetLen() int { return l.ds.Len() }

// BatchSize returns the configured draw size.
func (l *Loader) BatchSize() int { return l.batchSize }

// Next draws the next batch. Each call pulls batchSize indices from the
// sampler, so a with-replacement sampler re-resolves its draw on every call.
func (l *Loader) Next() (*Batch, error) {
	idx := make([]int, l.batchSize)
	for i := range idx {
		idx[i] = l.sampler.Next()
	}

	// Sort by descending frame count before assembling the batch.
	sort.SliceStable(idx, func(a, b int) bool {
		return len(l.ds.At(idx[a]).Features) > len(l.ds.At(idx[b]).Features)
	})

	b := &Batch{
		Features:     make([][][]float64, l.batchSize),
		InputLengths: make([]int, l.batchSize),
		Targets:      make([][]int, l.batchSize),
		Transcripts:  make([]string, l.batchSize),
	}
	for i, j := range idx {
		u := l.ds.At(j)
		b.Features[i] = u.Features
		b.InputLengths[i] = len(u.Features)
		b.Targets[i] = u.Tokens
		b.Transcripts[i] = u.Transcript
	}
	return b, nil
}
