package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
model:
  input_dim: 40
  encoder_hidden: 32
  encoder_layers: 2
  bidirectional: true
  embed_dim: 16
  decoder_hidden: 64
  decoder_layers: 1
  units: ["a", "b", "c"]
beam:
  beam_size: 4
  nbest: 2
  decode_max_len: 50
eval:
  bootstrap_size: 10
  num_bootstraps: 5
  output_dir: out
  seed: 42
  metrics: [loss, character_error_rate]
data:
  manifest: test.json
  batch_size: 1
log_level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lasgo.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.InputDim != 40 || !cfg.Model.Bidirectional {
		t.Errorf("model section misparsed: %+v", cfg.Model)
	}
	if cfg.Beam.BeamSize != 4 || cfg.Beam.NBest != 2 || cfg.Beam.DecodeMaxLen != 50 {
		t.Errorf("beam section misparsed: %+v", cfg.Beam)
	}
	if cfg.Eval.NumBootstraps != 5 || cfg.Eval.Seed != 42 {
		t.Errorf("eval section misparsed: %+v", cfg.Eval)
	}
	if len(cfg.Eval.Metrics) != 2 {
		t.Errorf("metrics misparsed: %v", cfg.Eval.Metrics)
	}
	if cfg.Data.Manifest != "test.json" {
		t.Errorf("data section misparsed: %+v", cfg.Data)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "model: [unclosed"},
		{
			"missing units",
			`
model:
  input_dim: 40
  encoder_hidden: 32
  encoder_layers: 1
  embed_dim: 16
  decoder_hidden: 32
  decoder_layers: 1
`,
		},
		{
			"zero input dim",
			`
model:
  encoder_hidden: 32
  encoder_layers: 1
  embed_dim: 16
  decoder_hidden: 32
  decoder_layers: 1
  units: ["a"]
`,
		},
		{
			"unknown metric",
			`
model:
  input_dim: 40
  encoder_hidden: 32
  encoder_layers: 1
  embed_dim: 16
  decoder_hidden: 32
  decoder_layers: 1
  units: ["a"]
eval:
  metrics: [accuracy]
`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
