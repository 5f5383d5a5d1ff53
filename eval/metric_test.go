package eval

import (
	"math"
	"testing"

	"github.com/awagatsuma/lasgo/data"
	"github.com/awagatsuma/lasgo/decoder"
	"github.com/awagatsuma/lasgo/vocab"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want int
	}{
		{"equal", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 0},
		{"substitution", []string{"a", "b"}, []string{"a", "x"}, 1},
		{"insertion", []string{"a", "b"}, []string{"a", "x", "b"}, 1},
		{"deletion", []string{"a", "b", "c"}, []string{"a", "c"}, 1},
		{"empty ref", nil, []string{"a", "b"}, 2},
		{"empty hyp", []string{"a", "b"}, nil, 2},
		{"both empty", nil, nil, 0},
		{"kitten sitting", []string{"k", "i", "t", "t", "e", "n"}, []string{"s", "i", "t", "t", "i", "n", "g"}, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := editDistance(tc.a, tc.b); got != tc.want {
				t.Fatalf("editDistance = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSplitChars(t *testing.T) {
	got := splitChars("ab c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitChars = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitChars = %v, want %v", got, want)
		}
	}
}

// hypRecognizer always returns a fixed best hypothesis.
type hypRecognizer struct {
	seq []int
}

func (r hypRecognizer) Recognize(_ [][]float64, _ decoder.BeamConfig) ([]decoder.Hypothesis, error) {
	return []decoder.Hypothesis{{Score: 0, TokenSeq: r.seq}}, nil
}

func TestCERMetricPerfectHypothesis(t *testing.T) {
	v, err := vocab.New([]string{"a", "b"})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	ref, err := v.Encode([]string{"a", "b"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	batch := &data.Batch{
		Features: [][][]float64{{{0}}},
		Targets:  [][]int{ref},
	}
	// Hypothesis sequences carry sos/eos the way the beam search emits them.
	hyp := append([]int{v.SOS()}, append(ref, v.EOS())...)
	m := CERMetric{Vocab: v}
	got, err := m.ComputeWithRecognizer(nil, batch, hypRecognizer{seq: hyp})
	if err != nil {
		t.Fatalf("ComputeWithRecognizer: %v", err)
	}
	if got != 0 {
		t.Fatalf("CER = %f, want 0 for exact hypothesis", got)
	}
}

func TestCERMetricSubstitution(t *testing.T) {
	v, err := vocab.New([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	ref, err := v.Encode([]string{"a", "b"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wrong, err := v.Encode([]string{"a", "c"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	batch := &data.Batch{
		Features: [][][]float64{{{0}}},
		Targets:  [][]int{ref},
	}
	m := CERMetric{Vocab: v}
	got, err := m.ComputeWithRecognizer(nil, batch, hypRecognizer{seq: wrong})
	if err != nil {
		t.Fatalf("ComputeWithRecognizer: %v", err)
	}
	if math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("CER = %f, want 0.5 (1 substitution over 2 chars)", got)
	}
}

func TestErrorRateMetricsRejectPlainCompute(t *testing.T) {
	if _, err := (WERMetric{}).Compute(nil, nil); err == nil {
		t.Fatal("WERMetric.Compute without recognizer must fail")
	}
	if _, err := (CERMetric{}).Compute(nil, nil); err == nil {
		t.Fatal("CERMetric.Compute without recognizer must fail")
	}
}

func TestLossMetric(t *testing.T) {
	got, err := (LossMetric{}).Compute(&ModelOutput{Loss: 3.25}, &data.Batch{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got != 3.25 {
		t.Fatalf("loss = %f, want 3.25", got)
	}
}
