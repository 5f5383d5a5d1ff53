package eval

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/awagatsuma/lasgo/data"
	"github.com/awagatsuma/lasgo/internal/logger"
	"github.com/awagatsuma/lasgo/internal/mathutil"
)

// ErrDegenerateAggregation reports a mean/variance computation over an empty
// accumulator: zero bootstraps, zero draws, or an empty metric set.
var ErrDegenerateAggregation = errors.New("eval: degenerate aggregation")

// DumpFilename is the fixed name of the evaluation result file.
const DumpFilename = "evaluation.json"

// Config holds the bootstrap parameters.
type Config struct {
	// BootstrapSize is the number of with-replacement batch draws per
	// bootstrap iteration. With a batch size of 1 this is the number of
	// resampled utterances per bootstrap.
	BootstrapSize int
	// NumBootstraps is the number of independent bootstrap iterations.
	NumBootstraps int
	// OutputDir receives the evaluation dump.
	OutputDir string
	// Seed makes the resampling reproducible. Zero keeps it at zero; pass
	// a varying value for independent runs.
	Seed int64
}

// Evaluator estimates each metric's mean and variance by bootstrap
// resampling. It assumes exclusive single-owner access to the model and the
// loader for the duration of a run; nothing here is safe for concurrent use.
type Evaluator struct {
	model   Model
	rec     Recognizer
	loader  *data.Loader
	cfg     Config
	metrics []Metric
	log     logger.Logger

	runID    string
	meanDict map[string][]float64
	evalDict map[string]float64
	done     bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRecognizer provides the beam-search entry point required by metrics
// that declare the DecodingMetric capability.
func WithRecognizer(rec Recognizer) Option {
	return func(e *Evaluator) { e.rec = rec }
}

// WithMetrics sets the metric set.
func WithMetrics(metrics ...Metric) Option {
	return func(e *Evaluator) { e.metrics = metrics }
}

// WithLogger replaces the default logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Evaluator) { e.log = log }
}

// New creates an Evaluator. Metrics may also be added later with AddMetric,
// before Run.
func New(model Model, loader *data.Loader, cfg Config, opts ...Option) (*Evaluator, error) {
	if model == nil {
		return nil, fmt.Errorf("eval: nil model")
	}
	if loader == nil {
		return nil, fmt.Errorf("eval: nil loader")
	}
	e := &Evaluator{
		model:  model,
		loader: loader,
		cfg:    cfg,
		log:    logger.Default(),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AddMetric appends a metric to the set. Must be called before Run.
func (e *Evaluator) AddMetric(m Metric) {
	e.metrics = append(e.metrics, m)
}

// RunID identifies this evaluation run in logs and sinks.
func (e *Evaluator) RunID() string { return e.runID }

// Run executes all bootstrap iterations and fills the evaluation result.
// Calling Run again restarts from a fresh sampler and fresh accumulators.
func (e *Evaluator) Run() error {
	if e.cfg.NumBootstraps <= 0 || e.cfg.BootstrapSize <= 0 {
		return fmt.Errorf("%w: %d bootstraps of %d draws",
			ErrDegenerateAggregation, e.cfg.NumBootstraps, e.cfg.BootstrapSize)
	}
	if len(e.metrics) == 0 {
		return fmt.Errorf("%w: no metrics configured", ErrDegenerateAggregation)
	}
	for _, m := range e.metrics {
		if _, needsRec := m.(DecodingMetric); needsRec && e.rec == nil {
			return fmt.Errorf("eval: metric %s requires a recognizer", m.Name())
		}
	}

	// Swap in with-replacement sampling once, before any iteration. A fresh
	// run gets a fresh sampler so repeated runs are independent but a run
	// with the same seed reproduces exactly.
	e.loader.SetSampler(data.NewReplacementSampler(e.loader.DatasetLen(), e.cfg.Seed))

	e.log.Info("starting bootstrap evaluation",
		"run_id", e.runID,
		"num_bootstraps", e.cfg.NumBootstraps,
		"bootstrap_size", e.cfg.BootstrapSize,
		"metrics", len(e.metrics))

	e.meanDict = make(map[string][]float64, len(e.metrics))
	for _, m := range e.metrics {
		e.meanDict[m.Name()] = make([]float64, 0, e.cfg.NumBootstraps)
	}
	for b := 0; b < e.cfg.NumBootstraps; b++ {
		if err := e.bootstrapStep(); err != nil {
			return fmt.Errorf("eval: bootstrap %d: %w", b, err)
		}
	}

	if err := e.computeMeanVariance(); err != nil {
		return err
	}
	e.done = true
	e.log.Info("bootstrap evaluation finished", "run_id", e.runID)
	return nil
}

// bootstrapStep performs one bootstrap iteration: BootstrapSize fresh
// replacement draws, one model forward per draw, metric accumulation, and
// one mean per metric appended to the cross-bootstrap dictionary.
func (e *Evaluator) bootstrapStep() error {
	running := make(map[string][]float64, len(e.metrics))
	for _, m := range e.metrics {
		running[m.Name()] = nil
	}

	for s := 0; s < e.cfg.BootstrapSize; s++ {
		batch, err := e.loader.Next()
		if err != nil {
			return fmt.Errorf("draw %d: %w", s, err)
		}
		out, err := e.model.Forward(batch)
		if err != nil {
			return fmt.Errorf("forward on draw %d: %w", s, err)
		}
		if err := e.computeRunningMetrics(out, batch, running); err != nil {
			return err
		}
	}

	for _, m := range e.metrics {
		values := running[m.Name()]
		if len(values) == 0 {
			return fmt.Errorf("%w: metric %s accumulated no values", ErrDegenerateAggregation, m.Name())
		}
		e.meanDict[m.Name()] = append(e.meanDict[m.Name()], mathutil.Mean(values))
	}
	return nil
}

// computeRunningMetrics scores one batch with every metric, dispatching on
// the DecodingMetric capability where declared.
func (e *Evaluator) computeRunningMetrics(out *ModelOutput, batch *data.Batch, running map[string][]float64) error {
	for _, m := range e.metrics {
		var value float64
		var err error
		if dm, ok := m.(DecodingMetric); ok {
			value, err = dm.ComputeWithRecognizer(out, batch, e.rec)
		} else {
			value, err = m.Compute(out, batch)
		}
		if err != nil {
			return fmt.Errorf("metric %s: %w", m.Name(), err)
		}
		running[m.Name()] = append(running[m.Name()], value)
	}
	return nil
}

// computeMeanVariance reduces the per-bootstrap means into the final
// {metric}_mean / {metric}_variance result. Variance is the unbiased sample
// variance (n-1 denominator); a single bootstrap has variance 0.
func (e *Evaluator) computeMeanVariance() error {
	e.evalDict = make(map[string]float64, 2*len(e.meanDict))
	for name, means := range e.meanDict {
		if len(means) == 0 {
			return fmt.Errorf("%w: metric %s has no bootstrap means", ErrDegenerateAggregation, name)
		}
		e.evalDict[name+"_mean"] = mathutil.Mean(means)
		e.evalDict[name+"_variance"] = mathutil.SampleVariance(means)
	}
	return nil
}

// Results returns a copy of the evaluation result, running the evaluation
// first if it has not happened yet.
func (e *Evaluator) Results() (map[string]float64, error) {
	if err := e.ensureRun(); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(e.evalDict))
	for k, v := range e.evalDict {
		out[k] = v
	}
	return out, nil
}

// Dump writes the evaluation result to OutputDir/evaluation.json, running
// the evaluation first if needed. Repeated dumps without re-running produce
// identical output. Write failures are surfaced to the caller and never
// retried.
func (e *Evaluator) Dump() error {
	if err := e.ensureRun(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(e.evalDict, "", "  ")
	if err != nil {
		return fmt.Errorf("eval: encode evaluation dump: %w", err)
	}
	path := filepath.Join(e.cfg.OutputDir, DumpFilename)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("eval: write evaluation dump: %w", err)
	}
	e.log.Info("wrote evaluation dump", "run_id", e.runID, "path", path)
	return nil
}

// Report sends every result key to the sink as a named scalar, running the
// evaluation first if needed. Keys are reported in sorted order.
func (e *Evaluator) Report(sink Sink) error {
	if err := e.ensureRun(); err != nil {
		return err
	}
	keys := make([]string, 0, len(e.evalDict))
	for k := range e.evalDict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sink.Scalar(k, e.evalDict[k])
	}
	return nil
}

func (e *Evaluator) ensureRun() error {
	if e.done {
		return nil
	}
	e.log.Info("evaluation not done yet, starting it", "run_id", e.runID)
	return e.Run()
}
