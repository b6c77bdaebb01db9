// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Config defines counting session settings.
type Config struct {
	Lang     string
	BarWidth int
	Ref      Reference
}

// HistoryConfig defines filters for history output.
type HistoryConfig struct {
	Since *time.Time
	Last  int
}

// RefKind names the source a session sequence is built from.
type RefKind string

// Reference kinds.
const (
	RefPreset     RefKind = "preset"
	RefCollection RefKind = "collection"
	RefInvocation RefKind = "invocation"
)

// ParseRefKind validates a reference kind string.
func ParseRefKind(s string) (RefKind, error) {
	switch RefKind(s) {
	case RefPreset, RefCollection, RefInvocation:
		return RefKind(s), nil
	default:
		return "", fmt.Errorf("unknown reference kind %q", s)
	}
}

// Reference points at something a sequence can be resolved from.
type Reference struct {
	Kind RefKind
	ID   string
}

func (r Reference) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Invocation is a repeatable phrase.
type Invocation struct {
	ID          string
	Name        DisplayText
	Repetitions int
	Description DisplayText
	Builtin     bool
	CreatedAt   time.Time
}

// Member is one entry of a collection. A zero RepetitionsOverride means the
// invocation's own repetition count applies.
type Member struct {
	InvocationID        string
	RepetitionsOverride int
}

// Collection is an ordered sequence of invocations.
type Collection struct {
	ID          string
	Name        DisplayText
	Description DisplayText
	Members     []Member
	Builtin     bool
	CreatedAt   time.Time
}

// Favorite marks a reference for quick access.
type Favorite struct {
	Ref       Reference
	CreatedAt time.Time
}

// SessionRecord captures a completed counting session.
type SessionRecord struct {
	ID        string
	Ref       Reference
	Name      DisplayText
	TotalReps int
	Taps      int
	StartedAt time.Time
	EndedAt   time.Time
}
