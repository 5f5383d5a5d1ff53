package nnet

import (
	"math"
	"testing"

	"github.com/awagatsuma/lasgo/internal/mathutil"
)

func TestLinearForward(t *testing.T) {
	l := &Linear{
		W:      []float64{1, 2, 3, 4, 5, 6}, // [2 × 3]
		B:      []float64{0.5, -0.5},
		InDim:  3,
		OutDim: 2,
	}
	y := l.Forward(mathutil.Vec{1, 0, -1})
	want := mathutil.Vec{1*1 + 2*0 + 3*(-1) + 0.5, 4*1 + 5*0 + 6*(-1) - 0.5}
	for j := range want {
		if math.Abs(y[j]-want[j]) > 1e-12 {
			t.Errorf("y[%d] = %f, want %f", j, y[j], want[j])
		}
	}
}

func TestLinearForwardBatchMatchesForward(t *testing.T) {
	l := NewLinear(4, 3)
	x := []float64{
		0.1, -0.2, 0.3, 0.4,
		1.0, 0.5, -0.5, 0.0,
	}
	y := l.ForwardBatch(x, 2)
	for r := 0; r < 2; r++ {
		row := l.Forward(x[r*4 : (r+1)*4])
		for j := 0; j < 3; j++ {
			if math.Abs(y[r*3+j]-row[j]) > 1e-12 {
				t.Fatalf("row %d col %d: batch %f, single %f", r, j, y[r*3+j], row[j])
			}
		}
	}
}
