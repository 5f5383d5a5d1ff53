// Package decoder implements the attention-based sequence decoder of the
// recognizer. It has two entry points: Forward, the teacher-forced unrolling
// used during training to compute a cross-entropy loss, and RecognizeBeam,
// the beam-search unrolling used at inference time to produce N-best
// hypotheses.
package decoder

import (
	"fmt"
	"math"

	"github.com/awagatsuma/lasgo/internal/mathutil"
	"github.com/awagatsuma/lasgo/nnet"
)

// IgnoreID marks padded target positions that must not contribute to the loss.
const IgnoreID = -1

// Config holds the decoder hyperparameters and the vocabulary-derived ids.
// It is fixed at construction and never mutated afterwards.
type Config struct {
	VocabSize  int
	EmbedDim   int
	HiddenDim  int
	EncoderDim int // width of encoder output frames
	NumLayers  int
	SOS        int
	EOS        int
}

func (c Config) validate() error {
	switch {
	case c.VocabSize <= 0:
		return fmt.Errorf("decoder: vocab size %d", c.VocabSize)
	case c.EmbedDim <= 0 || c.HiddenDim <= 0 || c.EncoderDim <= 0:
		return fmt.Errorf("decoder: non-positive dimension (embed=%d hidden=%d encoder=%d)",
			c.EmbedDim, c.HiddenDim, c.EncoderDim)
	case c.NumLayers <= 0:
		return fmt.Errorf("decoder: num layers %d", c.NumLayers)
	case c.HiddenDim != c.EncoderDim:
		// Dot-product attention scores the top cell output against encoder
		// frames, so the two widths must agree.
		return fmt.Errorf("decoder: hidden dim %d must equal encoder dim %d", c.HiddenDim, c.EncoderDim)
	case c.SOS < 0 || c.SOS >= c.VocabSize || c.EOS < 0 || c.EOS >= c.VocabSize:
		return fmt.Errorf("decoder: sos=%d eos=%d outside vocab of %d", c.SOS, c.EOS, c.VocabSize)
	case c.SOS == c.EOS:
		return fmt.Errorf("decoder: sos and eos share id %d", c.SOS)
	}
	return nil
}

// Decoder is a stack of single-step LSTM cells with dot-product attention and
// a two-layer output head. Cell 0 consumes the token embedding concatenated
// with the previous attention context; cell l>0 consumes cell l-1's output.
type Decoder struct {
	Cfg       Config
	Embed     *nnet.Embedding
	Cells     []*nnet.LSTMCell
	Attention nnet.DotProductAttention
	Proj      *nnet.Linear // [EncoderDim+HiddenDim → HiddenDim], tanh applied after
	Out       *nnet.Linear // [HiddenDim → VocabSize]
}

// New creates a Decoder with freshly initialized weights.
func New(cfg Config) (*Decoder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d := &Decoder{
		Cfg:   cfg,
		Embed: nnet.NewEmbedding(cfg.VocabSize, cfg.EmbedDim),
		Proj:  nnet.NewLinear(cfg.EncoderDim+cfg.HiddenDim, cfg.HiddenDim),
		Out:   nnet.NewLinear(cfg.HiddenDim, cfg.VocabSize),
	}
	d.Cells = append(d.Cells, nnet.NewLSTMCell(cfg.EmbedDim+cfg.EncoderDim, cfg.HiddenDim))
	for l := 1; l < cfg.NumLayers; l++ {
		d.Cells = append(d.Cells, nnet.NewLSTMCell(cfg.HiddenDim, cfg.HiddenDim))
	}
	return d, nil
}

// state is one utterance's recurrent and attention state. A state value is
// never mutated after construction; each decode step builds a fresh one, so
// beam-search hypotheses can share a parent state without aliasing hazards.
type state struct {
	h   []mathutil.Vec // per-layer hidden, [NumLayers][HiddenDim]
	c   []mathutil.Vec // per-layer cell, [NumLayers][HiddenDim]
	att mathutil.Vec   // previous attention context, [EncoderDim]
}

func (d *Decoder) zeroState() state {
	st := state{
		h:   make([]mathutil.Vec, d.Cfg.NumLayers),
		c:   make([]mathutil.Vec, d.Cfg.NumLayers),
		att: mathutil.NewVec(d.Cfg.EncoderDim),
	}
	for l := range st.h {
		st.h[l] = mathutil.NewVec(d.Cfg.HiddenDim)
		st.c[l] = mathutil.NewVec(d.Cfg.HiddenDim)
	}
	return st
}

// step advances the decoder one token for a single utterance and returns the
// successor state together with the per-class logits.
func (d *Decoder) step(token int, st state, enc mathutil.Mat) (state, mathutil.Vec) {
	next := state{
		h: make([]mathutil.Vec, len(d.Cells)),
		c: make([]mathutil.Vec, len(d.Cells)),
	}

	x := mathutil.Concat(d.Embed.Lookup(token), st.att)
	next.h[0], next.c[0] = d.Cells[0].Step(x, st.h[0], st.c[0])
	for l := 1; l < len(d.Cells); l++ {
		next.h[l], next.c[l] = d.Cells[l].Step(next.h[l-1], st.h[l], st.c[l])
	}
	top := next.h[len(d.Cells)-1]

	ctx, _ := d.Attention.Context(top, enc)
	next.att = ctx

	hid := d.Proj.Forward(mathutil.Concat(top, ctx))
	for j := range hid {
		hid[j] = math.Tanh(hid[j])
	}
	return next, d.Out.Forward(hid)
}
