package decoder

import (
	"errors"
	"fmt"
	"sort"

	"github.com/awagatsuma/lasgo/internal/mathutil"
)

// ErrInvalidConfig reports a malformed beam configuration.
var ErrInvalidConfig = errors.New("decoder: invalid beam configuration")

// BeamConfig controls beam-search decoding.
type BeamConfig struct {
	BeamSize     int `yaml:"beam_size"`
	NBest        int `yaml:"nbest"`
	DecodeMaxLen int `yaml:"decode_max_len"` // 0 means "use the encoder output length"
}

// Validate rejects non-positive beam/nbest sizes and negative length caps.
func (c BeamConfig) Validate() error {
	if c.BeamSize <= 0 {
		return fmt.Errorf("%w: beam size %d", ErrInvalidConfig, c.BeamSize)
	}
	if c.NBest <= 0 {
		return fmt.Errorf("%w: nbest %d", ErrInvalidConfig, c.NBest)
	}
	if c.DecodeMaxLen < 0 {
		return fmt.Errorf("%w: decode max len %d", ErrInvalidConfig, c.DecodeMaxLen)
	}
	return nil
}

// Hypothesis is one completed beam-search output: a token sequence (sos
// prefix included) and its cumulative log-probability. Scores are raw sums;
// no length normalization is applied.
type Hypothesis struct {
	Score    float64
	TokenSeq []int
}

// beamHyp is an active hypothesis during the search. The embedded state is
// shared structurally with siblings from the same parent; states are never
// mutated in place, so the sharing is safe.
type beamHyp struct {
	score float64
	seq   []int
	st    state
}

// RecognizeBeam beam-search decodes one utterance's encoder outputs and
// returns up to NBest completed hypotheses sorted by descending score.
//
// Each step expands every active hypothesis with its BeamSize best tokens,
// ranks all candidates globally, and keeps the top BeamSize as the next
// generation. On the final allowed step the eos token is force-appended to
// every survivor, so the completed set is never empty.
func (d *Decoder) RecognizeBeam(enc mathutil.Mat, cfg BeamConfig) ([]Hypothesis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(enc) == 0 {
		return nil, fmt.Errorf("decoder: empty encoder output")
	}
	maxLen := cfg.DecodeMaxLen
	if maxLen == 0 {
		maxLen = len(enc)
	}

	active := []beamHyp{{
		score: 0.0,
		seq:   []int{d.Cfg.SOS},
		st:    d.zeroState(),
	}}
	var completed []beamHyp

	for i := 0; i < maxLen && len(active) > 0; i++ {
		// Expand: one decoder step per hypothesis, then the per-hypothesis
		// top BeamSize token extensions become candidates.
		var candidates []beamHyp
		for _, hyp := range active {
			st, logits := d.step(hyp.seq[len(hyp.seq)-1], hyp.st, enc)
			logProbs := mathutil.NewVec(len(logits))
			mathutil.LogSoftmax(logProbs, logits)
			for _, id := range topIDs(logProbs, cfg.BeamSize) {
				seq := make([]int, len(hyp.seq)+1)
				copy(seq, hyp.seq)
				seq[len(hyp.seq)] = id
				candidates = append(candidates, beamHyp{
					score: hyp.score + logProbs[id],
					seq:   seq,
					st:    st,
				})
			}
		}

		// Global rank across all parents; the survivors form a brand-new
		// generation, prior generations are never touched again.
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].score > candidates[b].score
		})
		if len(candidates) > cfg.BeamSize {
			candidates = candidates[:cfg.BeamSize]
		}
		active = candidates

		// Force-terminate at the length cap so at least one hypothesis ends.
		if i == maxLen-1 {
			for k := range active {
				if last := active[k].seq[len(active[k].seq)-1]; last != d.Cfg.EOS {
					active[k].seq = append(active[k].seq, d.Cfg.EOS)
				}
			}
		}

		// Partition ended hypotheses into the completed set.
		remained := active[:0:0]
		for _, hyp := range active {
			if hyp.seq[len(hyp.seq)-1] == d.Cfg.EOS {
				completed = append(completed, hyp)
			} else {
				remained = append(remained, hyp)
			}
		}
		active = remained
	}

	sort.SliceStable(completed, func(a, b int) bool {
		return completed[a].score > completed[b].score
	})
	n := cfg.NBest
	if n > len(completed) {
		n = len(completed)
	}
	out := make([]Hypothesis, n)
	for k := 0; k < n; k++ {
		seq := make([]int, len(completed[k].seq))
		copy(seq, completed[k].seq)
		out[k] = Hypothesis{Score: completed[k].score, TokenSeq: seq}
	}
	return out, nil
}

// topIDs returns the ids of the k largest values of v, best first.
func topIDs(v mathutil.Vec, k int) []int {
	if k > len(v) {
		k = len(v)
	}
	ids := make([]int, len(v))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(a, b int) bool {
		return v[ids[a]] > v[ids[b]]
	})
	return ids[:k]
}
