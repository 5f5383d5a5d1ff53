package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/awagatsuma/lasgo/config"
	"github.com/awagatsuma/lasgo/data"
)

func recognizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "recognize",
		Usage: "beam-search decode every utterance of the manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Value:   "model.gob",
				Usage:   "model path",
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "override the configured manifest path",
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel, c.String("log-level"))

			if err := cfg.Beam.Validate(); err != nil {
				return err
			}
			model, err := loadModel(c.String("model"))
			if err != nil {
				return err
			}

			manifest := cfg.Data.Manifest
			if m := c.String("manifest"); m != "" {
				manifest = m
			}
			ds, err := data.LoadManifest(manifest, model.Vocab())
			if err != nil {
				return err
			}
			log.Info("loaded dataset", "manifest", manifest, "utterances", ds.Len())

			for i := 0; i < ds.Len(); i++ {
				utt := ds.At(i)
				hyps, err := model.Recognize(utt.Features, cfg.Beam)
				if err != nil {
					return fmt.Errorf("utterance %d: %w", i, err)
				}
				fmt.Printf("utt %d ref: %s\n", i, utt.Transcript)
				for rank, h := range hyps {
					fmt.Printf("  %d. (%.4f) %s\n", rank+1, h.Score, model.Vocab().Decode(h.TokenSeq))
				}
			}
			return nil
		},
	}
}
