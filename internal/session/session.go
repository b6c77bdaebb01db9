package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/dhikr/internal/log"
	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/progress"
)

// Snapshot is a read-only copy of the session for presentation.
type Snapshot struct {
	Ref            model.Reference
	Name           model.DisplayText
	State          State
	Phase          Phase
	View           progress.View
	HasView        bool
	TapsToComplete int
	Fraction       float64
	StartedAt      time.Time
}

// Session is the single active counting session. It is not safe for
// concurrent use; callers drive it from one event loop.
type Session struct {
	counter   Counter
	resolver  *Resolver
	ref       model.Reference
	startedAt time.Time
	now       func() time.Time
	logger    zerolog.Logger
}

// New returns an empty session that resolves references with resolver.
func New(resolver *Resolver) *Session {
	return &Session{
		resolver: resolver,
		now:      time.Now,
		logger:   log.WithComponent("session"),
	}
}

// Open resolves ref and loads it. It does nothing when the active sequence
// already has ref.ID, and leaves the session untouched on error.
func (s *Session) Open(ctx context.Context, ref model.Reference) (bool, error) {
	if s.counter.Phase() != PhaseNoSequence && s.counter.Sequence().ID() == ref.ID {
		return false, nil
	}
	seq, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return false, err
	}
	s.Load(ref, seq)
	return true, nil
}

// Load replaces the active sequence unconditionally.
func (s *Session) Load(ref model.Reference, seq model.Sequence) {
	s.counter.Load(seq)
	s.ref = ref
	s.startedAt = time.Time{}
	s.logger.Info().
		Str("kind", string(ref.Kind)).
		Str("id", ref.ID).
		Int("steps", seq.Len()).
		Int("taps_to_complete", progress.TotalTapsToComplete(seq)).
		Msg("sequence loaded")
}

// Advance counts one tap.
func (s *Session) Advance() bool {
	if !s.counter.Advance() {
		return false
	}
	if s.startedAt.IsZero() {
		s.startedAt = s.now()
	}
	return true
}

// Rewind undoes one tap.
func (s *Session) Rewind() bool {
	return s.counter.Rewind()
}

// Reset returns to tap 0.
func (s *Session) Reset() {
	s.counter.Reset()
	s.startedAt = time.Time{}
}

// Snapshot returns the current state and derived view.
func (s *Session) Snapshot() Snapshot {
	seq := s.counter.Sequence()
	view, ok := s.counter.View()
	return Snapshot{
		Ref:            s.ref,
		Name:           seq.Name(),
		State:          s.counter.State(),
		Phase:          s.counter.Phase(),
		View:           view,
		HasView:        ok,
		TapsToComplete: progress.TotalTapsToComplete(seq),
		Fraction:       progress.Fraction(seq, s.counter.State().Taps),
		StartedAt:      s.startedAt,
	}
}

// Record returns a history record once the session is complete.
func (s *Session) Record() (model.SessionRecord, bool) {
	if s.counter.Phase() != PhaseComplete {
		return model.SessionRecord{}, false
	}
	seq := s.counter.Sequence()
	ended := s.now()
	started := s.startedAt
	if started.IsZero() {
		started = ended
	}
	return model.SessionRecord{
		ID:        uuid.NewString(),
		Ref:       s.ref,
		Name:      seq.Name(),
		TotalReps: seq.TotalReps(),
		Taps:      s.counter.State().Taps,
		StartedAt: started,
		EndedAt:   ended,
	}, true
}
