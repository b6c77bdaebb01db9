// Package preset provides the built-in sequence table.
package preset

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/dhikr/internal/model"
)

//go:embed presets.toml
var builtinTOML string

type fileDoc struct {
	Preset []presetDoc `toml:"preset"`
}

type presetDoc struct {
	ID   string    `toml:"id"`
	Name any       `toml:"name"`
	Step []stepDoc `toml:"step"`
}

type stepDoc struct {
	Label       any `toml:"label"`
	Sublabel    any `toml:"sublabel"`
	Repetitions int `toml:"repetitions"`
}

// Table is an ordered, read-only set of sequences keyed by id.
type Table struct {
	order []string
	byID  map[string]model.Sequence
}

// Builtin parses the embedded preset table.
func Builtin() (*Table, error) {
	return Parse(builtinTOML)
}

// Parse decodes a preset document.
func Parse(data string) (*Table, error) {
	var doc fileDoc
	if _, err := toml.Decode(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}
	t := &Table{byID: make(map[string]model.Sequence, len(doc.Preset))}
	for i, p := range doc.Preset {
		if p.ID == "" {
			return nil, fmt.Errorf("preset %d: id is required", i)
		}
		if _, dup := t.byID[p.ID]; dup {
			return nil, fmt.Errorf("preset %q: duplicate id", p.ID)
		}
		name, err := model.ParseDisplayText(p.Name)
		if err != nil {
			return nil, fmt.Errorf("preset %q name: %w", p.ID, err)
		}
		steps := make([]model.Step, 0, len(p.Step))
		for j, s := range p.Step {
			label, err := model.ParseDisplayText(s.Label)
			if err != nil {
				return nil, fmt.Errorf("preset %q step %d label: %w", p.ID, j, err)
			}
			sub, err := model.ParseDisplayText(s.Sublabel)
			if err != nil {
				return nil, fmt.Errorf("preset %q step %d sublabel: %w", p.ID, j, err)
			}
			steps = append(steps, model.Step{Label: label, Sublabel: sub, Repetitions: s.Repetitions})
		}
		seq, err := model.NewSequence(p.ID, name, steps)
		if err != nil {
			return nil, fmt.Errorf("invalid preset: %w", err)
		}
		t.order = append(t.order, p.ID)
		t.byID[p.ID] = seq
	}
	return t, nil
}

// Preset returns the sequence with id.
func (t *Table) Preset(id string) (model.Sequence, bool) {
	seq, ok := t.byID[id]
	return seq, ok
}

// All returns presets in file order.
func (t *Table) All() []model.Sequence {
	out := make([]model.Sequence, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}
