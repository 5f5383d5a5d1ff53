package eval

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/awagatsuma/lasgo/data"
	"github.com/awagatsuma/lasgo/decoder"
	"github.com/awagatsuma/lasgo/internal/logger"
)

// --- Fakes ---

type fakeModel struct {
	forwardCalls int
	loss         float64
}

func (m *fakeModel) Forward(batch *data.Batch) (*ModelOutput, error) {
	m.forwardCalls++
	return &ModelOutput{
		TargetLengths: make([]int, batch.Size()),
		Loss:          m.loss,
	}, nil
}

type fakeRecognizer struct {
	calls int
	hyps  []decoder.Hypothesis
}

func (r *fakeRecognizer) Recognize(_ [][]float64, _ decoder.BeamConfig) ([]decoder.Hypothesis, error) {
	r.calls++
	return r.hyps, nil
}

type constMetric struct {
	name  string
	value float64
}

func (m constMetric) Name() string                                { return m.name }
func (m constMetric) Compute(*ModelOutput, *data.Batch) (float64, error) { return m.value, nil }

// decodingProbe records whether dispatch reached the recognizer-aware path.
type decodingProbe struct {
	withRec int
	without int
}

func (*decodingProbe) Name() string { return "probe" }

func (p *decodingProbe) Compute(*ModelOutput, *data.Batch) (float64, error) {
	p.without++
	return 0, nil
}

func (p *decodingProbe) ComputeWithRecognizer(_ *ModelOutput, _ *data.Batch, rec Recognizer) (float64, error) {
	p.withRec++
	if rec == nil {
		return 0, errors.New("nil recognizer")
	}
	return 0, nil
}

func testDataset(n int) *data.MemoryDataset {
	utts := make([]data.Utterance, n)
	for i := range utts {
		utts[i] = data.Utterance{
			Features:   [][]float64{{float64(i)}, {float64(i)}},
			Tokens:     []int{0},
			Transcript: "a",
		}
	}
	return data.NewMemoryDataset(utts)
}

func testLoader(t *testing.T, datasetLen int) *data.Loader {
	t.Helper()
	l, err := data.NewLoader(testDataset(datasetLen), 1)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return l
}

// --- Tests ---

func TestConstantMetricStatistics(t *testing.T) {
	model := &fakeModel{}
	cfg := Config{BootstrapSize: 4, NumBootstraps: 5, Seed: 1}
	ev, err := New(model, testLoader(t, 3), cfg,
		WithMetrics(constMetric{name: "const", value: 1.0}),
		WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ev.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	results, err := ev.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if results["const_mean"] != 1.0 {
		t.Errorf("const_mean = %v, want exactly 1.0", results["const_mean"])
	}
	if results["const_variance"] != 0.0 {
		t.Errorf("const_variance = %v, want exactly 0.0", results["const_variance"])
	}
}

func TestBootstrapLargerThanDataset(t *testing.T) {
	model := &fakeModel{}
	cfg := Config{BootstrapSize: 10, NumBootstraps: 3, Seed: 7}
	ev, err := New(model, testLoader(t, 2), cfg,
		WithMetrics(LossMetric{}),
		WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ev.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// With batch size 1, every draw is one forward pass. Replacement
	// sampling makes 10 draws from 2 utterances valid.
	if want := 10 * 3; model.forwardCalls != want {
		t.Fatalf("forward calls = %d, want %d", model.forwardCalls, want)
	}
	if got := len(ev.meanDict["loss"]); got != 3 {
		t.Fatalf("per-bootstrap means = %d, want 3", got)
	}
}

func TestDumpIdempotent(t *testing.T) {
	dir := t.TempDir()
	model := &fakeModel{loss: 0.25}
	cfg := Config{BootstrapSize: 3, NumBootstraps: 2, OutputDir: dir, Seed: 42}
	ev, err := New(model, testLoader(t, 4), cfg,
		WithMetrics(LossMetric{}),
		WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// First Dump triggers the run lazily.
	if err := ev.Dump(); err != nil {
		t.Fatalf("first Dump: %v", err)
	}
	callsAfterRun := model.forwardCalls
	first, err := os.ReadFile(filepath.Join(dir, DumpFilename))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	if err := ev.Dump(); err != nil {
		t.Fatalf("second Dump: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, DumpFilename))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	if string(first) != string(second) {
		t.Fatal("repeated Dump changed the output")
	}
	if model.forwardCalls != callsAfterRun {
		t.Fatalf("second Dump re-ran the evaluation: %d calls, had %d", model.forwardCalls, callsAfterRun)
	}
}

func TestSameSeedReproduces(t *testing.T) {
	run := func() map[string]float64 {
		model := &fakeModel{loss: 0.5}
		ev, err := New(model, testLoader(t, 5),
			Config{BootstrapSize: 4, NumBootstraps: 2, Seed: 99},
			WithMetrics(LossMetric{}),
			WithLogger(logger.Discard()))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		results, err := ev.Results()
		if err != nil {
			t.Fatalf("Results: %v", err)
		}
		return results
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("result sizes differ: %d vs %d", len(a), len(b))
	}
	for k, v := range a {
		if b[k] != v {
			t.Errorf("%s: %v vs %v", k, v, b[k])
		}
	}
}

func TestDegenerateAggregation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		opts []Option
	}{
		{
			name: "zero bootstraps",
			cfg:  Config{BootstrapSize: 2, NumBootstraps: 0},
			opts: []Option{WithMetrics(LossMetric{})},
		},
		{
			name: "zero bootstrap size",
			cfg:  Config{BootstrapSize: 0, NumBootstraps: 2},
			opts: []Option{WithMetrics(LossMetric{})},
		},
		{
			name: "no metrics",
			cfg:  Config{BootstrapSize: 2, NumBootstraps: 2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := append(tc.opts, WithLogger(logger.Discard()))
			ev, err := New(&fakeModel{}, testLoader(t, 3), tc.cfg, opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := ev.Run(); !errors.Is(err, ErrDegenerateAggregation) {
				t.Fatalf("Run error = %v, want ErrDegenerateAggregation", err)
			}
		})
	}
}

func TestDecodingMetricRequiresRecognizer(t *testing.T) {
	ev, err := New(&fakeModel{}, testLoader(t, 3),
		Config{BootstrapSize: 1, NumBootstraps: 1},
		WithMetrics(&decodingProbe{}),
		WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ev.Run(); err == nil {
		t.Fatal("expected error for decoding metric without recognizer")
	}
}

func TestDecodingMetricDispatch(t *testing.T) {
	probe := &decodingProbe{}
	rec := &fakeRecognizer{}
	ev, err := New(&fakeModel{}, testLoader(t, 3),
		Config{BootstrapSize: 2, NumBootstraps: 2, Seed: 3},
		WithMetrics(probe, constMetric{name: "plain", value: 2}),
		WithRecognizer(rec),
		WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ev.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if probe.without != 0 {
		t.Errorf("recognizer-capable metric dispatched through plain Compute %d times", probe.without)
	}
	if want := 2 * 2; probe.withRec != want {
		t.Errorf("ComputeWithRecognizer calls = %d, want %d", probe.withRec, want)
	}
}

func TestResultsReturnsCopy(t *testing.T) {
	ev, err := New(&fakeModel{loss: 1}, testLoader(t, 2),
		Config{BootstrapSize: 1, NumBootstraps: 1},
		WithMetrics(LossMetric{}),
		WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := ev.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	a["loss_mean"] = math.Inf(1)
	b, err := ev.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if math.IsInf(b["loss_mean"], 1) {
		t.Fatal("Results exposes internal state")
	}
}

type recordingSink struct {
	names []string
}

func (s *recordingSink) Scalar(name string, _ float64) { s.names = append(s.names, name) }

func TestReportSortedScalars(t *testing.T) {
	ev, err := New(&fakeModel{}, testLoader(t, 2),
		Config{BootstrapSize: 1, NumBootstraps: 1},
		WithMetrics(LossMetric{}, constMetric{name: "aaa", value: 1}),
		WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := &recordingSink{}
	if err := ev.Report(sink); err != nil {
		t.Fatalf("Report: %v", err)
	}
	want := []string{"aaa_mean", "aaa_variance", "loss_mean", "loss_variance"}
	if len(sink.names) != len(want) {
		t.Fatalf("reported %v, want %v", sink.names, want)
	}
	for i := range want {
		if sink.names[i] != want[i] {
			t.Fatalf("reported %v, want %v", sink.names, want)
		}
	}
}
