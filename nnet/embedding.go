package nnet

import "github.com/awagatsuma/lasgo/internal/mathutil"

// Embedding is a token id → dense vector lookup table.
// W is [NumEmbed × Dim] row-major.
type Embedding struct {
	W        []float64
	NumEmbed int
	Dim      int
}

// NewEmbedding creates an embedding table with small uniform init.
func NewEmbedding(numEmbed, dim int) *Embedding {
	e := &Embedding{
		W:        make([]float64, numEmbed*dim),
		NumEmbed: numEmbed,
		Dim:      dim,
	}
	uniformInit(e.W, 0.1)
	return e
}

// Lookup returns a copy of the embedding row for id.
// Out-of-range ids map to the zero vector.
func (e *Embedding) Lookup(id int) mathutil.Vec {
	out := mathutil.NewVec(e.Dim)
	if id < 0 || id >= e.NumEmbed {
		return out
	}
	copy(out, e.W[id*e.Dim:(id+1)*e.Dim])
	return out
}
