// Command lasgo drives the recognizer: model initialization, beam-search
// recognition over a manifest, and bootstrap evaluation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/awagatsuma/lasgo/internal/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "lasgo",
		Usage: "attention-based sequence-to-sequence speech recognition harness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "lasgo.yaml",
				Usage:   "path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "",
				Usage: "override the configured log level (debug|info|warn|error)",
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			infoCommand(),
			recognizeCommand(),
			evalCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lasgo: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the command logger from the config file value with an
// optional CLI override.
func newLogger(configured, override string) logger.Logger {
	level := configured
	if override != "" {
		level = override
	}
	return logger.JSON(os.Stderr, logger.ParseLevel(level))
}
