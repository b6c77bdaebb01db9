// Package session owns the counting state of the active sequence.
package session

import (
	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/progress"
)

// Phase is the coarse state of a Counter.
type Phase int

// Counter phases.
const (
	PhaseNoSequence Phase = iota
	PhaseInProgress
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseNoSequence:
		return "no-sequence"
	case PhaseInProgress:
		return "in-progress"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// State is a copy of the counter's mutable cell.
type State struct {
	SequenceID string
	Taps       int
	Complete   bool
}

// Counter holds cumulative taps against one sequence. Complete is always
// Taps >= progress.TotalTapsToComplete(sequence).
type Counter struct {
	seq      model.Sequence
	taps     int
	complete bool
}

// Load replaces the active sequence and starts at tap 0.
func (c *Counter) Load(seq model.Sequence) {
	c.seq = seq
	c.taps = 0
	c.recompute()
}

// Advance counts one tap. It is a no-op without a sequence or once complete.
func (c *Counter) Advance() bool {
	if c.seq.IsZero() || c.complete {
		return false
	}
	c.taps++
	c.recompute()
	return true
}

// Rewind undoes one tap. It is a no-op at tap 0 and once complete.
func (c *Counter) Rewind() bool {
	if c.taps == 0 || c.complete {
		return false
	}
	c.taps--
	c.recompute()
	return true
}

// Reset returns to tap 0 of the current sequence.
func (c *Counter) Reset() {
	c.taps = 0
	c.recompute()
}

func (c *Counter) recompute() {
	c.complete = !c.seq.IsZero() && c.taps >= progress.TotalTapsToComplete(c.seq)
}

// State returns a snapshot of the counter cell.
func (c *Counter) State() State {
	return State{SequenceID: c.seq.ID(), Taps: c.taps, Complete: c.complete}
}

// Sequence returns the active sequence, zero if none is loaded.
func (c *Counter) Sequence() model.Sequence {
	return c.seq
}

// Phase reports the counter's phase.
func (c *Counter) Phase() Phase {
	switch {
	case c.seq.IsZero():
		return PhaseNoSequence
	case c.complete:
		return PhaseComplete
	default:
		return PhaseInProgress
	}
}

// View resolves the current progress view. ok is false with no sequence.
func (c *Counter) View() (view progress.View, ok bool) {
	if c.seq.IsZero() {
		return progress.View{}, false
	}
	return progress.Resolve(c.seq, c.taps, c.complete), true
}
