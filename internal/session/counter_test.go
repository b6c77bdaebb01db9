package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/progress"
)

func sequenceOf(t *testing.T, id string, reps ...int) model.Sequence {
	t.Helper()
	steps := make([]model.Step, len(reps))
	for i, r := range reps {
		steps[i] = model.Step{Label: model.Text(id), Repetitions: r}
	}
	seq, err := model.NewSequence(id, model.Text(id), steps)
	if err != nil {
		t.Fatalf("new sequence: %v", err)
	}
	return seq
}

func checkInvariant(t *testing.T, c *Counter) {
	t.Helper()
	st := c.State()
	seq := c.Sequence()
	want := !seq.IsZero() && st.Taps >= progress.TotalTapsToComplete(seq)
	if st.Complete != want {
		t.Fatalf("complete=%v but taps=%d of %d", st.Complete, st.Taps, progress.TotalTapsToComplete(seq))
	}
	if st.Taps < 0 {
		t.Fatalf("taps went negative: %d", st.Taps)
	}
}

func TestCounterNoSequenceIgnoresInput(t *testing.T) {
	var c Counter
	if c.Phase() != PhaseNoSequence {
		t.Fatalf("expected no-sequence phase, got %s", c.Phase())
	}
	if c.Advance() {
		t.Fatalf("advance without a sequence must be a no-op")
	}
	if c.Rewind() {
		t.Fatalf("rewind without a sequence must be a no-op")
	}
	if _, ok := c.View(); ok {
		t.Fatalf("expected no view without a sequence")
	}
	checkInvariant(t, &c)
}

func TestCounterAdvanceToCompletion(t *testing.T) {
	var c Counter
	c.Load(sequenceOf(t, "tasbih", 33, 33, 33))
	for i := 0; i < 101; i++ {
		if c.Phase() != PhaseInProgress {
			t.Fatalf("tap %d: expected in-progress, got %s", i, c.Phase())
		}
		before := c.State().Taps
		if !c.Advance() {
			t.Fatalf("tap %d: advance rejected", i)
		}
		if c.State().Taps != before+1 {
			t.Fatalf("tap %d: advance did not increment", i)
		}
		checkInvariant(t, &c)
	}
	if c.Phase() != PhaseComplete {
		t.Fatalf("expected complete after 101 taps, got %s", c.Phase())
	}
	for i := 0; i < 5; i++ {
		if c.Advance() {
			t.Fatalf("advance past completion must be a no-op")
		}
	}
	if got := c.State().Taps; got != 101 {
		t.Fatalf("expected taps pinned at 101, got %d", got)
	}
	view, _ := c.View()
	if view.StepIndex != 2 || view.RepsDone != 33 {
		t.Fatalf("unexpected completed view: %+v", view)
	}
}

func TestCounterRewind(t *testing.T) {
	var c Counter
	c.Load(sequenceOf(t, "s", 3, 3))
	if c.Rewind() {
		t.Fatalf("rewind at zero must be a no-op")
	}
	c.Advance()
	c.Advance()
	if !c.Rewind() {
		t.Fatalf("expected rewind to succeed")
	}
	if got := c.State().Taps; got != 1 {
		t.Fatalf("expected 1 tap after rewind, got %d", got)
	}
	checkInvariant(t, &c)
}

func TestCounterRewindFromCompleteIsNoop(t *testing.T) {
	var c Counter
	c.Load(sequenceOf(t, "s", 2))
	c.Advance()
	c.Advance()
	if c.Phase() != PhaseComplete {
		t.Fatalf("expected complete")
	}
	if c.Rewind() {
		t.Fatalf("rewind from complete must be a no-op")
	}
	if got := c.State(); got.Taps != 2 || !got.Complete {
		t.Fatalf("state changed by rejected rewind: %+v", got)
	}
}

func TestCounterResetRoundTrip(t *testing.T) {
	var c Counter
	c.Load(sequenceOf(t, "s", 4, 1, 2))
	fresh := c.State()
	total := progress.TotalTapsToComplete(c.Sequence())
	for i := 0; i < total; i++ {
		c.Advance()
	}
	if !c.State().Complete {
		t.Fatalf("expected completion after %d taps", total)
	}
	c.Reset()
	if diff := cmp.Diff(fresh, c.State()); diff != "" {
		t.Fatalf("reset state differs from fresh load (-want +got):\n%s", diff)
	}
	checkInvariant(t, &c)
}

func TestCounterLoadReplacesSequence(t *testing.T) {
	var c Counter
	c.Load(sequenceOf(t, "a", 5))
	c.Advance()
	c.Advance()
	c.Load(sequenceOf(t, "b", 9))
	want := State{SequenceID: "b"}
	if diff := cmp.Diff(want, c.State()); diff != "" {
		t.Fatalf("unexpected state after load (-want +got):\n%s", diff)
	}
}
