package nnet

import (
	"github.com/awagatsuma/lasgo/internal/blas"
	"github.com/awagatsuma/lasgo/internal/mathutil"
)

// Linear is a fully-connected layer. W is [OutDim × InDim] row-major, B is [OutDim].
type Linear struct {
	W      []float64
	B      []float64
	InDim  int
	OutDim int
}

// NewLinear creates a Linear layer with Xavier-initialized weights.
func NewLinear(inDim, outDim int) *Linear {
	l := &Linear{
		W:      make([]float64, outDim*inDim),
		B:      make([]float64, outDim),
		InDim:  inDim,
		OutDim: outDim,
	}
	xavierInit(l.W, inDim, outDim)
	return l
}

// Forward returns W*x + B as a fresh vector.
func (l *Linear) Forward(x mathutil.Vec) mathutil.Vec {
	y := mathutil.NewVec(l.OutDim)
	blas.Dgemv(false, l.OutDim, l.InDim, l.W, x, 0.0, y)
	for j := range y {
		y[j] += l.B[j]
	}
	return y
}

// ForwardBatch computes Y = X*W^T + B for a flat row-major X [bs × InDim],
// writing into a fresh flat [bs × OutDim] buffer.
func (l *Linear) ForwardBatch(x []float64, bs int) []float64 {
	y := make([]float64, bs*l.OutDim)
	blas.Dgemm(false, true, bs, l.OutDim, l.InDim, x, l.InDim, l.W, l.InDim, 0.0, y, l.OutDim)
	for r := 0; r < bs; r++ {
		off := r * l.OutDim
		for j := 0; j < l.OutDim; j++ {
			y[off+j] += l.B[j]
		}
	}
	return y
}
