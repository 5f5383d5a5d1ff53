package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/awagatsuma/lasgo"
	"github.com/awagatsuma/lasgo/config"
	"github.com/awagatsuma/lasgo/vocab"
)

func modelConfig(m config.Model) lasgo.ModelConfig {
	return lasgo.ModelConfig{
		InputDim:      m.InputDim,
		EncoderHidden: m.EncoderHidden,
		EncoderLayers: m.EncoderLayers,
		Bidirectional: m.Bidirectional,
		EmbedDim:      m.EmbedDim,
		DecoderHidden: m.DecoderHidden,
		DecoderLayers: m.DecoderLayers,
	}
}

func loadModel(path string) (*lasgo.Seq2Seq, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return lasgo.Load(f)
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "create a model with fresh weights from the configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "model.gob",
				Usage:   "output model path",
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel, c.String("log-level"))

			v, err := vocab.New(cfg.Model.Units)
			if err != nil {
				return err
			}
			model, err := lasgo.NewSeq2Seq(modelConfig(cfg.Model), v)
			if err != nil {
				return err
			}

			f, err := os.Create(c.String("output"))
			if err != nil {
				return fmt.Errorf("create model file: %w", err)
			}
			defer f.Close()
			if err := model.Save(f); err != nil {
				return err
			}
			log.Info("initialized model",
				"path", c.String("output"),
				"vocab_size", v.Size(),
				"encoder_layers", cfg.Model.EncoderLayers,
				"decoder_layers", cfg.Model.DecoderLayers)
			return nil
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "print model dimensions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Value:   "model.gob",
				Usage:   "model path",
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			model, err := loadModel(c.String("model"))
			if err != nil {
				return err
			}
			cfg := model.Cfg
			fmt.Printf("input_dim:      %d\n", cfg.InputDim)
			fmt.Printf("encoder:        %d layers × %d hidden (bidirectional=%v)\n",
				cfg.EncoderLayers, cfg.EncoderHidden, cfg.Bidirectional)
			fmt.Printf("decoder:        %d layers × %d hidden, embed %d\n",
				cfg.DecoderLayers, cfg.DecoderHidden, cfg.EmbedDim)
			fmt.Printf("vocab_size:     %d\n", model.Vocab().Size())
			return nil
		},
	}
}
