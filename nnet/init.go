package nnet

import (
	"math"
	"math/rand"
)

func xavierInit(w []float64, fanIn, fanOut int) {
	scale := math.Sqrt(2.0 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = rand.NormFloat64() * scale
	}
}

// uniformInit fills w with U(-bound, bound). Used for embedding tables.
func uniformInit(w []float64, bound float64) {
	for i := range w {
		w[i] = (rand.Float64()*2 - 1) * bound
	}
}
