package decoder

import (
	"fmt"
	"math"

	"github.com/awagatsuma/lasgo/internal/mathutil"
)

// ForwardResult carries the teacher-forced decode outputs for one batch.
type ForwardResult struct {
	// Logits is [N][To][VocabSize] where To = max target length + 1
	// (sos-shifted input, eos-terminated output).
	Logits [][][]float64
	// TargetLengths is the per-example decode length including the
	// sos/eos bookkeeping token.
	TargetLengths []int
	// Loss is the cross-entropy averaged over non-ignored positions.
	Loss float64
}

// Forward unrolls the decoder over a batch of ground-truth target sequences,
// feeding the true previous token at every step (teacher forcing).
//
// targets holds eos-stripped token sequences; encOuts holds the matching
// encoder output matrices, one [Ti × EncoderDim] per example. The batch must
// already be sorted by descending input length for encoder packing; that is a
// caller precondition and is not re-checked here.
//
// No decoder state survives the call: recurrent and attention state are
// zero-initialized on entry and discarded on return.
func (d *Decoder) Forward(targets [][]int, encOuts []mathutil.Mat) (*ForwardResult, error) {
	N := len(targets)
	if N == 0 || len(encOuts) != N {
		return nil, fmt.Errorf("decoder: batch of %d targets with %d encoder outputs", N, len(encOuts))
	}

	// Build sos-prefixed inputs and eos-terminated outputs, padded to the
	// batch max length. Inputs pad with eos, outputs pad with IgnoreID so
	// padded positions drop out of the loss.
	To := 0
	yLens := make([]int, N)
	for n, y := range targets {
		yLens[n] = len(y) + 1
		if yLens[n] > To {
			To = yLens[n]
		}
	}
	ysIn := make([][]int, N)
	ysOut := make([][]int, N)
	for n, y := range targets {
		in := make([]int, To)
		out := make([]int, To)
		in[0] = d.Cfg.SOS
		copy(in[1:], y)
		copy(out, y)
		out[len(y)] = d.Cfg.EOS
		for t := len(y) + 1; t < To; t++ {
			in[t] = d.Cfg.EOS
			out[t] = IgnoreID
		}
		ysIn[n] = in
		ysOut[n] = out
	}

	// Flat batched decoder state: per-layer hidden/cell [N × H] plus the
	// running attention context [N × EncoderDim], all zero at step 0.
	H := d.Cfg.HiddenDim
	E := d.Cfg.EncoderDim
	D := d.Cfg.EmbedDim
	L := len(d.Cells)
	hs := make([][]float64, L)
	cs := make([][]float64, L)
	for l := 0; l < L; l++ {
		hs[l] = make([]float64, N*H)
		cs[l] = make([]float64, N*H)
	}
	att := make([]float64, N*E)

	logits := make([][][]float64, N)
	for n := range logits {
		logits[n] = make([][]float64, To)
	}

	xBuf := make([]float64, N*(D+E))
	mlpBuf := make([]float64, N*(H+E))

	for t := 0; t < To; t++ {
		// Cell 0 input: token embedding ++ previous attention context.
		for n := 0; n < N; n++ {
			emb := d.Embed.Lookup(ysIn[n][t])
			off := n * (D + E)
			copy(xBuf[off:off+D], emb)
			copy(xBuf[off+D:off+D+E], att[n*E:(n+1)*E])
		}

		in := xBuf
		for l := 0; l < L; l++ {
			hs[l], cs[l] = d.Cells[l].StepBatch(in, hs[l], cs[l], N)
			in = hs[l]
		}
		top := hs[L-1]

		// Per-example attention: encoder lengths differ across the batch.
		for n := 0; n < N; n++ {
			ctx, _ := d.Attention.Context(top[n*H:(n+1)*H], encOuts[n])
			copy(att[n*E:(n+1)*E], ctx)
			off := n * (H + E)
			copy(mlpBuf[off:off+H], top[n*H:(n+1)*H])
			copy(mlpBuf[off+H:off+H+E], ctx)
		}

		hid := d.Proj.ForwardBatch(mlpBuf, N)
		for j := range hid {
			hid[j] = math.Tanh(hid[j])
		}
		stepLogits := d.Out.ForwardBatch(hid, N)
		V := d.Cfg.VocabSize
		for n := 0; n < N; n++ {
			row := make([]float64, V)
			copy(row, stepLogits[n*V:(n+1)*V])
			logits[n][t] = row
		}
	}

	loss, err := crossEntropy(logits, ysOut, d.Cfg.VocabSize)
	if err != nil {
		return nil, err
	}
	return &ForwardResult{Logits: logits, TargetLengths: yLens, Loss: loss}, nil
}

// crossEntropy averages -log softmax(logits)[target] over every position not
// marked IgnoreID.
func crossEntropy(logits [][][]float64, targets [][]int, vocabSize int) (float64, error) {
	total := 0.0
	count := 0
	for n := range logits {
		for t, row := range logits[n] {
			tgt := targets[n][t]
			if tgt == IgnoreID {
				continue
			}
			if tgt < 0 || tgt >= vocabSize {
				return 0, fmt.Errorf("decoder: target id %d outside vocab of %d", tgt, vocabSize)
			}
			total += mathutil.LogSumExp(row) - row[tgt]
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("decoder: no unpadded target positions in batch")
	}
	return total / float64(count), nil
}
