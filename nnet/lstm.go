package nnet

import (
	"math"

	"github.com/awagatsuma/lasgo/internal/blas"
	"github.com/awagatsuma/lasgo/internal/mathutil"
)

// LSTMCell is a single-step recurrent cell.
// Gate pre-activations are stored as four consecutive [HiddenDim] blocks in
// the order input, forget, cell, output.
// Wih is [4H × InDim], Whh is [4H × H], B is [4H].
type LSTMCell struct {
	Wih       []float64
	Whh       []float64
	B         []float64
	InDim     int
	HiddenDim int
}

// NewLSTMCell creates an LSTM cell with Xavier-initialized weights and the
// forget gate bias set to 1.
func NewLSTMCell(inDim, hiddenDim int) *LSTMCell {
	c := &LSTMCell{
		Wih:       make([]float64, 4*hiddenDim*inDim),
		Whh:       make([]float64, 4*hiddenDim*hiddenDim),
		B:         make([]float64, 4*hiddenDim),
		InDim:     inDim,
		HiddenDim: hiddenDim,
	}
	xavierInit(c.Wih, inDim, hiddenDim)
	xavierInit(c.Whh, hiddenDim, hiddenDim)
	for j := hiddenDim; j < 2*hiddenDim; j++ {
		c.B[j] = 1.0
	}
	return c
}

// Step advances the cell one time step. The returned hidden and cell state
// vectors are freshly allocated; the inputs are never mutated, so callers may
// share state vectors across hypotheses safely.
func (c *LSTMCell) Step(x, h, cell mathutil.Vec) (mathutil.Vec, mathutil.Vec) {
	H := c.HiddenDim
	z := mathutil.NewVec(4 * H)
	blas.Dgemv(false, 4*H, c.InDim, c.Wih, x, 0.0, z)
	blas.Dgemv(false, 4*H, H, c.Whh, h, 1.0, z)
	for j := range z {
		z[j] += c.B[j]
	}

	hNew := mathutil.NewVec(H)
	cNew := mathutil.NewVec(H)
	applyGates(z, cell, hNew, cNew, 0, H)
	return hNew, cNew
}

// StepBatch advances the cell one time step for a flat row-major batch.
// x is [bs × InDim], h and cell are [bs × H]. Fresh state buffers are returned.
func (c *LSTMCell) StepBatch(x, h, cell []float64, bs int) ([]float64, []float64) {
	H := c.HiddenDim
	z := make([]float64, bs*4*H)
	blas.Dgemm(false, true, bs, 4*H, c.InDim, x, c.InDim, c.Wih, c.InDim, 0.0, z, 4*H)
	blas.Dgemm(false, true, bs, 4*H, H, h, H, c.Whh, H, 1.0, z, 4*H)
	for r := 0; r < bs; r++ {
		off := r * 4 * H
		for j := 0; j < 4*H; j++ {
			z[off+j] += c.B[j]
		}
	}

	hNew := make([]float64, bs*H)
	cNew := make([]float64, bs*H)
	for r := 0; r < bs; r++ {
		applyGates(z[r*4*H:(r+1)*4*H], cell[r*H:(r+1)*H], hNew[r*H:(r+1)*H], cNew[r*H:(r+1)*H], 0, H)
	}
	return hNew, cNew
}

// applyGates turns one row of gate pre-activations into new hidden/cell state.
// z holds [i f g o] blocks of width H starting at offset off.
func applyGates(z, cPrev, hNew, cNew []float64, off, H int) {
	for j := 0; j < H; j++ {
		i := mathutil.Sigmoid(z[off+j])
		f := mathutil.Sigmoid(z[off+H+j])
		g := math.Tanh(z[off+2*H+j])
		o := mathutil.Sigmoid(z[off+3*H+j])
		cNew[j] = f*cPrev[j] + i*g
		hNew[j] = o * math.Tanh(cNew[j])
	}
}

// LSTM applies a stack of LSTM layers across a full variable-length sequence.
// With Bidirectional set, each layer runs a forward and a backward pass and
// concatenates them per time step, doubling the output width.
type LSTM struct {
	Fwd           []*LSTMCell // one per layer
	Bwd           []*LSTMCell // one per layer, nil when unidirectional
	InputDim      int
	HiddenDim     int
	NumLayers     int
	Bidirectional bool
}

// NewLSTM creates a NumLayers-deep LSTM over InputDim-wide feature frames.
func NewLSTM(inputDim, hiddenDim, numLayers int, bidirectional bool) *LSTM {
	l := &LSTM{
		InputDim:      inputDim,
		HiddenDim:     hiddenDim,
		NumLayers:     numLayers,
		Bidirectional: bidirectional,
	}
	layerIn := inputDim
	for i := 0; i < numLayers; i++ {
		l.Fwd = append(l.Fwd, NewLSTMCell(layerIn, hiddenDim))
		if bidirectional {
			l.Bwd = append(l.Bwd, NewLSTMCell(layerIn, hiddenDim))
			layerIn = 2 * hiddenDim
		} else {
			layerIn = hiddenDim
		}
	}
	return l
}

// OutputDim returns the per-frame output width (H, or 2H when bidirectional).
func (l *LSTM) OutputDim() int {
	if l.Bidirectional {
		return 2 * l.HiddenDim
	}
	return l.HiddenDim
}

// Forward runs the full stack over a T-frame sequence and returns the
// top-layer outputs as a fresh [T × OutputDim] matrix.
func (l *LSTM) Forward(seq mathutil.Mat) mathutil.Mat {
	cur := seq
	for i := 0; i < l.NumLayers; i++ {
		fwdOut := runDirection(l.Fwd[i], cur, false)
		if !l.Bidirectional {
			cur = fwdOut
			continue
		}
		bwdOut := runDirection(l.Bwd[i], cur, true)
		merged := mathutil.NewMat(len(cur), 2*l.HiddenDim)
		for t := range merged {
			copy(merged[t], fwdOut[t])
			copy(merged[t][l.HiddenDim:], bwdOut[t])
		}
		cur = merged
	}
	return cur
}

func runDirection(cell *LSTMCell, seq mathutil.Mat, reverse bool) mathutil.Mat {
	T := len(seq)
	out := make(mathutil.Mat, T)
	h := mathutil.NewVec(cell.HiddenDim)
	c := mathutil.NewVec(cell.HiddenDim)
	for step := 0; step < T; step++ {
		t := step
		if reverse {
			t = T - 1 - step
		}
		h, c = cell.Step(seq[t], h, c)
		out[t] = h
	}
	return out
}
