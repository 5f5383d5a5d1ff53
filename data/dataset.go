// Package data provides the held-out dataset, batching, and the sampling
// strategies driven by the bootstrap evaluator.
package data

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/awagatsuma/lasgo/vocab"
)

// Utterance is one example: acoustic feature frames plus the target token
// sequence (eos-stripped) and its surface transcript.
type Utterance struct {
	Features   [][]float64
	Tokens     []int
	Transcript string
}

// Dataset is a fixed-size collection of utterances.
type Dataset interface {
	Len() int
	At(i int) Utterance
}

// MemoryDataset keeps all utterances in memory.
type MemoryDataset struct {
	utts []Utterance
}

// NewMemoryDataset wraps a slice of utterances.
func NewMemoryDataset(utts []Utterance) *MemoryDataset {
	return &MemoryDataset{utts: utts}
}

func (d *MemoryDataset) Len() int          { return len(d.utts) }
func (d *MemoryDataset) At(i int) Utterance { return d.utts[i] }

// manifestEntry is one record of the JSON manifest file: pre-extracted
// feature frames and the character transcript.
type manifestEntry struct {
	Features   [][]float64 `json:"features"`
	Transcript string      `json:"transcript"`
}

// LoadManifest reads a JSON manifest (array of {features, transcript}) and
// encodes each transcript into token ids through the vocabulary, one token
// per character.
func LoadManifest(path string, v *vocab.Vocabulary) (*MemoryDataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data: read manifest: %w", err)
	}
	var entries []manifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("data: parse manifest %s: %w", path, err)
	}

	utts := make([]Utterance, 0, len(entries))
	for i, e := range entries {
		if len(e.Features) == 0 {
			return nil, fmt.Errorf("data: manifest entry %d has no features", i)
		}
		units := make([]string, 0, len(e.Transcript))
		for _, r := range e.Transcript {
			units = append(units, string(r))
		}
		tokens, err := v.Encode(units)
		if err != nil {
			return nil, fmt.Errorf("data: manifest entry %d: %w", i, err)
		}
		utts = append(utts, Utterance{
			Features:   e.Features,
			Tokens:     tokens,
			Transcript: e.Transcript,
		})
	}
	if len(utts) == 0 {
		return nil, fmt.Errorf("data: empty manifest %s", path)
	}
	return NewMemoryDataset(utts), nil
}
