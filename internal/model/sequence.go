package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSteps is returned when a sequence would have no steps.
	ErrNoSteps = errors.New("sequence has no steps")
	// ErrInvalidRepetitions is returned for a step with repetitions <= 0.
	ErrInvalidRepetitions = errors.New("step repetitions must be > 0")
)

// Step is one labeled phrase within a sequence.
type Step struct {
	Label       DisplayText
	Sublabel    DisplayText
	Repetitions int
}

// Sequence is an immutable ordered list of steps. The zero value is "no
// sequence".
type Sequence struct {
	id    string
	name  DisplayText
	steps []Step
}

// NewSequence validates and copies steps into a Sequence.
func NewSequence(id string, name DisplayText, steps []Step) (Sequence, error) {
	if len(steps) == 0 {
		return Sequence{}, fmt.Errorf("sequence %q: %w", id, ErrNoSteps)
	}
	copied := make([]Step, len(steps))
	for i, st := range steps {
		if st.Repetitions <= 0 {
			return Sequence{}, fmt.Errorf("sequence %q step %d: %w", id, i, ErrInvalidRepetitions)
		}
		copied[i] = st
	}
	return Sequence{id: id, name: name, steps: copied}, nil
}

// SingleStep wraps one phrase into a one-step sequence.
func SingleStep(id string, name DisplayText, repetitions int) (Sequence, error) {
	return NewSequence(id, name, []Step{{Label: name, Repetitions: repetitions}})
}

// ID returns the sequence id.
func (s Sequence) ID() string { return s.id }

// Name returns the sequence display name.
func (s Sequence) Name() DisplayText { return s.name }

// Len returns the number of steps.
func (s Sequence) Len() int { return len(s.steps) }

// IsZero reports whether s is the zero sequence.
func (s Sequence) IsZero() bool { return len(s.steps) == 0 }

// Step returns the i-th step.
func (s Sequence) Step(i int) Step { return s.steps[i] }

// Steps returns a copy of the steps.
func (s Sequence) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// TotalReps is the sum of all step repetitions.
func (s Sequence) TotalReps() int {
	total := 0
	for _, st := range s.steps {
		total += st.Repetitions
	}
	return total
}
