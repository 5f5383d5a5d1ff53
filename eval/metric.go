// Package eval implements bootstrap-resampled statistical evaluation of a
// trained model: repeated with-replacement draws from a held-out dataset,
// per-bootstrap metric means, and cross-bootstrap mean/variance estimates.
package eval

import (
	"fmt"
	"strings"

	"github.com/awagatsuma/lasgo/data"
	"github.com/awagatsuma/lasgo/decoder"
	"github.com/awagatsuma/lasgo/vocab"
)

// ModelOutput is what one teacher-forced forward pass produces.
type ModelOutput struct {
	Logits        [][][]float64
	TargetLengths []int
	Loss          float64
}

// Model is the teacher-forced entry point of the system under evaluation.
type Model interface {
	Forward(batch *data.Batch) (*ModelOutput, error)
}

// Recognizer is the beam-search entry point, needed only by metrics that
// decode.
type Recognizer interface {
	Recognize(features [][]float64, cfg decoder.BeamConfig) ([]decoder.Hypothesis, error)
}

// Metric scores one model output against its batch.
type Metric interface {
	Name() string
	Compute(out *ModelOutput, batch *data.Batch) (float64, error)
}

// DecodingMetric is the capability a metric declares when it needs to run
// the recognizer (e.g. error-rate metrics). The evaluator branches on this
// interface rather than on the metric's name.
type DecodingMetric interface {
	Metric
	ComputeWithRecognizer(out *ModelOutput, batch *data.Batch, rec Recognizer) (float64, error)
}

// LossMetric reports the teacher-forced cross-entropy loss of the batch.
type LossMetric struct{}

func (LossMetric) Name() string { return "loss" }

func (LossMetric) Compute(out *ModelOutput, _ *data.Batch) (float64, error) {
	return out.Loss, nil
}

// WERMetric computes the batch-averaged word error rate by beam-decoding each
// utterance and aligning the word sequences.
type WERMetric struct {
	Vocab *vocab.Vocabulary
	Beam  decoder.BeamConfig
}

func (WERMetric) Name() string { return "word_error_rate" }

// Compute without a recognizer is a misconfiguration: the evaluator must
// dispatch through ComputeWithRecognizer.
func (m WERMetric) Compute(_ *ModelOutput, _ *data.Batch) (float64, error) {
	return 0, fmt.Errorf("eval: %s requires a recognizer", m.Name())
}

func (m WERMetric) ComputeWithRecognizer(_ *ModelOutput, batch *data.Batch, rec Recognizer) (float64, error) {
	return errorRate(batch, rec, m.Vocab, m.Beam, splitWords)
}

// CERMetric computes the batch-averaged character error rate.
type CERMetric struct {
	Vocab *vocab.Vocabulary
	Beam  decoder.BeamConfig
}

func (CERMetric) Name() string { return "character_error_rate" }

func (m CERMetric) Compute(_ *ModelOutput, _ *data.Batch) (float64, error) {
	return 0, fmt.Errorf("eval: %s requires a recognizer", m.Name())
}

func (m CERMetric) ComputeWithRecognizer(_ *ModelOutput, batch *data.Batch, rec Recognizer) (float64, error) {
	return errorRate(batch, rec, m.Vocab, m.Beam, splitChars)
}

// errorRate decodes every utterance of the batch, converts reference and
// best hypothesis to comparison units, and averages the per-utterance
// normalized edit distances.
func errorRate(batch *data.Batch, rec Recognizer, v *vocab.Vocabulary, beam decoder.BeamConfig,
	split func(string) []string) (float64, error) {

	if batch.Size() == 0 {
		return 0, fmt.Errorf("eval: empty batch")
	}
	total := 0.0
	for n := 0; n < batch.Size(); n++ {
		hyps, err := rec.Recognize(batch.Features[n], beam)
		if err != nil {
			return 0, fmt.Errorf("eval: decode utterance %d: %w", n, err)
		}
		hypText := ""
		if len(hyps) > 0 {
			hypText = v.Decode(hyps[0].TokenSeq)
		}
		ref := split(v.Decode(batch.Targets[n]))
		hyp := split(hypText)
		if len(ref) == 0 {
			// An empty reference counts each hypothesis unit as an error.
			total += float64(len(hyp))
			continue
		}
		total += float64(editDistance(ref, hyp)) / float64(len(ref))
	}
	return total / float64(batch.Size()), nil
}

func splitWords(s string) []string {
	return strings.Fields(s)
}

func splitChars(s string) []string {
	var units []string
	for _, r := range s {
		if r == ' ' {
			continue
		}
		units = append(units, string(r))
	}
	return units
}
