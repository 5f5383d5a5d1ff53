// Package lasgo is an attention-based sequence-to-sequence speech
// recognizer. A Seq2Seq model pairs a recurrent encoder over acoustic
// feature frames with an attention decoder that is unrolled teacher-forced
// during training and by beam search during recognition.
package lasgo

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/awagatsuma/lasgo/data"
	"github.com/awagatsuma/lasgo/decoder"
	"github.com/awagatsuma/lasgo/eval"
	"github.com/awagatsuma/lasgo/internal/mathutil"
	"github.com/awagatsuma/lasgo/nnet"
	"github.com/awagatsuma/lasgo/vocab"
)

// ModelConfig describes the Seq2Seq architecture. The decoder hidden width
// must equal the encoder output width (EncoderHidden, doubled when
// bidirectional) for dot-product attention.
type ModelConfig struct {
	InputDim      int
	EncoderHidden int
	EncoderLayers int
	Bidirectional bool
	EmbedDim      int
	DecoderHidden int
	DecoderLayers int
}

// Seq2Seq is the full recognizer model.
type Seq2Seq struct {
	Cfg     ModelConfig
	Encoder *nnet.LSTM
	Decoder *decoder.Decoder
	vocab   *vocab.Vocabulary
}

// NewSeq2Seq creates a model with freshly initialized weights over the given
// vocabulary.
func NewSeq2Seq(cfg ModelConfig, v *vocab.Vocabulary) (*Seq2Seq, error) {
	if v == nil {
		return nil, fmt.Errorf("lasgo: nil vocabulary")
	}
	enc := nnet.NewLSTM(cfg.InputDim, cfg.EncoderHidden, cfg.EncoderLayers, cfg.Bidirectional)
	if cfg.DecoderHidden != enc.OutputDim() {
		return nil, fmt.Errorf("lasgo: decoder hidden %d must equal encoder output %d",
			cfg.DecoderHidden, enc.OutputDim())
	}
	dec, err := decoder.New(decoder.Config{
		VocabSize:  v.Size(),
		EmbedDim:   cfg.EmbedDim,
		HiddenDim:  cfg.DecoderHidden,
		EncoderDim: enc.OutputDim(),
		NumLayers:  cfg.DecoderLayers,
		SOS:        v.SOS(),
		EOS:        v.EOS(),
	})
	if err != nil {
		return nil, err
	}
	return &Seq2Seq{Cfg: cfg, Encoder: enc, Decoder: dec, vocab: v}, nil
}

// Vocab returns the model's vocabulary.
func (m *Seq2Seq) Vocab() *vocab.Vocabulary { return m.vocab }

// Forward runs the teacher-forced pass over a batch: encode every example,
// then unroll the decoder against the ground-truth targets. The batch must
// be sorted by descending input length (data.Loader guarantees this).
func (m *Seq2Seq) Forward(batch *data.Batch) (*eval.ModelOutput, error) {
	if batch.Size() == 0 {
		return nil, fmt.Errorf("lasgo: empty batch")
	}
	encOuts := make([]mathutil.Mat, batch.Size())
	for n := 0; n < batch.Size(); n++ {
		encOuts[n] = m.Encoder.Forward(batch.Features[n])
	}
	res, err := m.Decoder.Forward(batch.Targets, encOuts)
	if err != nil {
		return nil, err
	}
	return &eval.ModelOutput{
		Logits:        res.Logits,
		TargetLengths: res.TargetLengths,
		Loss:          res.Loss,
	}, nil
}

// Recognize beam-search decodes one utterance's feature frames into N-best
// hypotheses.
func (m *Seq2Seq) Recognize(features [][]float64, cfg decoder.BeamConfig) ([]decoder.Hypothesis, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("lasgo: empty utterance")
	}
	enc := m.Encoder.Forward(features)
	return m.Decoder.RecognizeBeam(enc, cfg)
}

// --- Serialization ---

// V1 serialized format. The vocabulary is stored as its ordered unit list;
// reserved symbol ids are reconstructed deterministically on load.
type serializedModelV1 struct {
	Version int // = 1
	Cfg     ModelConfig
	Units   []string
	Encoder *nnet.LSTM
	Decoder *decoder.Decoder
}

// Save serializes the model to a writer using gob encoding.
func (m *Seq2Seq) Save(w io.Writer) error {
	sd := serializedModelV1{
		Version: 1,
		Cfg:     m.Cfg,
		Units:   m.vocab.Units(),
		Encoder: m.Encoder,
		Decoder: m.Decoder,
	}
	if err := gob.NewEncoder(w).Encode(sd); err != nil {
		return fmt.Errorf("lasgo: encode model: %w", err)
	}
	return nil
}

// Load deserializes a model from a reader.
func Load(r io.Reader) (*Seq2Seq, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lasgo: read model: %w", err)
	}
	var sd serializedModelV1
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&sd); err != nil {
		return nil, fmt.Errorf("lasgo: decode model: %w", err)
	}
	if sd.Version != 1 {
		return nil, fmt.Errorf("lasgo: unsupported model version %d", sd.Version)
	}
	if sd.Encoder == nil || sd.Decoder == nil {
		return nil, fmt.Errorf("lasgo: truncated model file")
	}
	v, err := vocab.New(sd.Units)
	if err != nil {
		return nil, fmt.Errorf("lasgo: rebuild vocabulary: %w", err)
	}
	return &Seq2Seq{Cfg: sd.Cfg, Encoder: sd.Encoder, Decoder: sd.Decoder, vocab: v}, nil
}
