package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/awagatsuma/lasgo"
	"github.com/awagatsuma/lasgo/config"
	"github.com/awagatsuma/lasgo/data"
	"github.com/awagatsuma/lasgo/eval"
)

func evalCommand() *cli.Command {
	return &cli.Command{
		Name:  "eval",
		Usage: "bootstrap-evaluate the model and dump mean/variance per metric",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Value:   "model.gob",
				Usage:   "model path",
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel, c.String("log-level"))

			model, err := loadModel(c.String("model"))
			if err != nil {
				return err
			}
			ds, err := data.LoadManifest(cfg.Data.Manifest, model.Vocab())
			if err != nil {
				return err
			}
			batchSize := cfg.Data.BatchSize
			if batchSize == 0 {
				batchSize = 1
			}
			loader, err := data.NewLoader(ds, batchSize)
			if err != nil {
				return err
			}

			metrics, needsRec, err := buildMetrics(cfg, model)
			if err != nil {
				return err
			}

			opts := []eval.Option{
				eval.WithMetrics(metrics...),
				eval.WithLogger(log),
			}
			if needsRec {
				if err := cfg.Beam.Validate(); err != nil {
					return err
				}
				opts = append(opts, eval.WithRecognizer(model))
			}

			if cfg.Eval.OutputDir != "" {
				if err := os.MkdirAll(cfg.Eval.OutputDir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
			ev, err := eval.New(model, loader, eval.Config{
				BootstrapSize: cfg.Eval.BootstrapSize,
				NumBootstraps: cfg.Eval.NumBootstraps,
				OutputDir:     cfg.Eval.OutputDir,
				Seed:          cfg.Eval.Seed,
			}, opts...)
			if err != nil {
				return err
			}

			if err := ev.Dump(); err != nil {
				return err
			}
			return ev.Report(eval.LogSink{Log: log})
		},
	}
}

// buildMetrics instantiates the configured metric set. The second return
// reports whether any metric needs the recognizer.
func buildMetrics(cfg *config.Config, model *lasgo.Seq2Seq) ([]eval.Metric, bool, error) {
	names := cfg.Eval.Metrics
	if len(names) == 0 {
		names = []string{"loss"}
	}
	var metrics []eval.Metric
	needsRec := false
	for _, name := range names {
		switch name {
		case "loss":
			metrics = append(metrics, eval.LossMetric{})
		case "word_error_rate":
			metrics = append(metrics, eval.WERMetric{Vocab: model.Vocab(), Beam: cfg.Beam})
			needsRec = true
		case "character_error_rate":
			metrics = append(metrics, eval.CERMetric{Vocab: model.Vocab(), Beam: cfg.Beam})
			needsRec = true
		default:
			return nil, false, fmt.Errorf("unknown metric %q", name)
		}
	}
	return metrics, needsRec, nil
}
