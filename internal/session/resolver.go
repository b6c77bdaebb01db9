package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/dhikr/internal/log"
	"github.com/verte-zerg/dhikr/internal/model"
)

var (
	// ErrNotFound is returned when a reference does not resolve.
	ErrNotFound = errors.New("reference not found")
	// ErrEmptySequence is returned when a collection yields no steps.
	ErrEmptySequence = errors.New("sequence would have no steps")
)

// Library is the read side of the invocation/collection store.
type Library interface {
	Invocation(ctx context.Context, id string) (model.Invocation, bool, error)
	Collection(ctx context.Context, id string) (model.Collection, bool, error)
}

// Presets is a static table of built-in sequences.
type Presets interface {
	Preset(id string) (model.Sequence, bool)
}

// Resolver builds sequences from references.
type Resolver struct {
	library Library
	presets Presets
	logger  zerolog.Logger
}

// NewResolver returns a Resolver. Either collaborator may be nil, in which
// case references of that kind never resolve.
func NewResolver(library Library, presets Presets) *Resolver {
	return &Resolver{
		library: library,
		presets: presets,
		logger:  log.WithComponent("resolver"),
	}
}

// Resolve builds the sequence for ref.
func (r *Resolver) Resolve(ctx context.Context, ref model.Reference) (model.Sequence, error) {
	switch ref.Kind {
	case model.RefPreset:
		return r.resolvePreset(ref)
	case model.RefCollection:
		return r.resolveCollection(ctx, ref)
	case model.RefInvocation:
		return r.resolveInvocation(ctx, ref)
	default:
		return model.Sequence{}, fmt.Errorf("unknown reference kind %q", ref.Kind)
	}
}

func (r *Resolver) resolvePreset(ref model.Reference) (model.Sequence, error) {
	if r.presets == nil {
		return model.Sequence{}, r.notFound(ref)
	}
	seq, ok := r.presets.Preset(ref.ID)
	if !ok {
		return model.Sequence{}, r.notFound(ref)
	}
	return seq, nil
}

func (r *Resolver) resolveInvocation(ctx context.Context, ref model.Reference) (model.Sequence, error) {
	if r.library == nil {
		return model.Sequence{}, r.notFound(ref)
	}
	inv, ok, err := r.library.Invocation(ctx, ref.ID)
	if err != nil {
		return model.Sequence{}, fmt.Errorf("failed to load invocation %q: %w", ref.ID, err)
	}
	if !ok {
		return model.Sequence{}, r.notFound(ref)
	}
	return model.NewSequence(ref.ID, inv.Name, []model.Step{{
		Label:       inv.Name,
		Sublabel:    inv.Description,
		Repetitions: inv.Repetitions,
	}})
}

func (r *Resolver) resolveCollection(ctx context.Context, ref model.Reference) (model.Sequence, error) {
	if r.library == nil {
		return model.Sequence{}, r.notFound(ref)
	}
	col, ok, err := r.library.Collection(ctx, ref.ID)
	if err != nil {
		return model.Sequence{}, fmt.Errorf("failed to load collection %q: %w", ref.ID, err)
	}
	if !ok {
		return model.Sequence{}, r.notFound(ref)
	}
	steps := make([]model.Step, 0, len(col.Members))
	for i, m := range col.Members {
		inv, ok, err := r.library.Invocation(ctx, m.InvocationID)
		if err != nil {
			return model.Sequence{}, fmt.Errorf("failed to load invocation %q: %w", m.InvocationID, err)
		}
		if !ok {
			r.logger.Warn().
				Str("collection", ref.ID).
				Int("position", i).
				Str("invocation", m.InvocationID).
				Msg("skipping member with missing invocation")
			continue
		}
		reps := inv.Repetitions
		if m.RepetitionsOverride > 0 {
			reps = m.RepetitionsOverride
		}
		steps = append(steps, model.Step{
			Label:       inv.Name,
			Sublabel:    inv.Description,
			Repetitions: reps,
		})
	}
	if len(steps) == 0 {
		return model.Sequence{}, fmt.Errorf("collection %q: %w", ref.ID, ErrEmptySequence)
	}
	return model.NewSequence(ref.ID, col.Name, steps)
}

func (r *Resolver) notFound(ref model.Reference) error {
	r.logger.Debug().Str("kind", string(ref.Kind)).Str("id", ref.ID).Msg("reference did not resolve")
	return fmt.Errorf("%s %q: %w", ref.Kind, ref.ID, ErrNotFound)
}
