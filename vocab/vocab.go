// Package vocab provides the symbol inventory shared by the decoder and the
// evaluation metrics. A Vocabulary is immutable after construction: the
// sos/eos ids are fixed once and never change for the lifetime of a model.
package vocab

import (
	"fmt"
	"strings"
)

// Reserved symbol strings. They are appended to the unit list when absent.
const (
	SOSSymbol = "<sos>"
	EOSSymbol = "<eos>"
)

// Vocabulary maps between token ids and surface symbols.
type Vocabulary struct {
	units []string
	index map[string]int
	sos   int
	eos   int
}

// New builds a Vocabulary from a list of surface units (characters or
// subwords). <sos> and <eos> are appended when not already present.
func New(units []string) (*Vocabulary, error) {
	v := &Vocabulary{
		units: make([]string, 0, len(units)+2),
		index: make(map[string]int, len(units)+2),
	}
	for _, u := range units {
		if u == "" {
			return nil, fmt.Errorf("vocab: empty unit")
		}
		if _, dup := v.index[u]; dup {
			return nil, fmt.Errorf("vocab: duplicate unit %q", u)
		}
		v.index[u] = len(v.units)
		v.units = append(v.units, u)
	}
	for _, special := range []string{SOSSymbol, EOSSymbol} {
		if _, ok := v.index[special]; !ok {
			v.index[special] = len(v.units)
			v.units = append(v.units, special)
		}
	}
	v.sos = v.index[SOSSymbol]
	v.eos = v.index[EOSSymbol]
	return v, nil
}

// Size returns the number of symbols including the reserved ones.
func (v *Vocabulary) Size() int { return len(v.units) }

// SOS returns the start-of-sequence token id.
func (v *Vocabulary) SOS() int { return v.sos }

// EOS returns the end-of-sequence token id.
func (v *Vocabulary) EOS() int { return v.eos }

// Unit returns the surface form of a token id.
func (v *Vocabulary) Unit(id int) (string, bool) {
	if id < 0 || id >= len(v.units) {
		return "", false
	}
	return v.units[id], true
}

// ID returns the token id of a surface unit.
func (v *Vocabulary) ID(unit string) (int, bool) {
	id, ok := v.index[unit]
	return id, ok
}

// Units returns a copy of the full unit list, reserved symbols included.
func (v *Vocabulary) Units() []string {
	out := make([]string, len(v.units))
	copy(out, v.units)
	return out
}

// Encode converts a transcript into token ids, one per unit. Unknown units
// are reported as an error rather than silently dropped.
func (v *Vocabulary) Encode(units []string) ([]int, error) {
	ids := make([]int, len(units))
	for i, u := range units {
		id, ok := v.index[u]
		if !ok {
			return nil, fmt.Errorf("vocab: unknown unit %q", u)
		}
		ids[i] = id
	}
	return ids, nil
}

// Decode converts token ids back into a transcript string. Reserved symbols
// are skipped.
func (v *Vocabulary) Decode(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		if id == v.sos || id == v.eos {
			continue
		}
		if id >= 0 && id < len(v.units) {
			sb.WriteString(v.units[id])
		}
	}
	return sb.String()
}
