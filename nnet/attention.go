package nnet

import "github.com/awagatsuma/lasgo/internal/mathutil"

// DotProductAttention scores a query against every encoder frame by dot
// product and returns the softmax-weighted sum of frames. Stateless; every
// call allocates fresh output so contexts are never aliased across callers.
type DotProductAttention struct{}

// Context returns the attention context vector and the attention weights for
// a query against encoder outputs enc [T × D]. The query must be D wide.
func (DotProductAttention) Context(query mathutil.Vec, enc mathutil.Mat) (mathutil.Vec, mathutil.Vec) {
	T := len(enc)
	weights := mathutil.NewVec(T)
	for t, frame := range enc {
		weights[t] = mathutil.DotVec(query, frame)
	}
	mathutil.Softmax(weights, weights)

	ctx := mathutil.NewVec(len(query))
	for t, frame := range enc {
		w := weights[t]
		for j, v := range frame {
			ctx[j] += w * v
		}
	}
	return ctx, weights
}
