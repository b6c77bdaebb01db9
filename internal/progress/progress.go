// Package progress maps a cumulative tap count onto a sequence.
//
// Moving from the last rep of step i to step i+1 consumes one tap that counts
// toward neither step. Step i therefore owns taps [A+i, A+i+reps[i]], where A
// is the repetitions of all earlier steps; tap A+i is the transition boundary
// for i > 0.
package progress

import "github.com/verte-zerg/dhikr/internal/model"

// View is the derived snapshot shown to the user.
type View struct {
	StepIndex            int
	TotalSteps           int
	StepLabel            model.DisplayText
	StepSublabel         model.DisplayText
	StepRepetitions      int
	RepsDone             int
	IsTransitionBoundary bool
}

// RepsRemaining returns reps left in the current step.
func (v View) RepsRemaining() int {
	return v.StepRepetitions - v.RepsDone
}

// TotalTapsToComplete returns the taps needed to finish seq, including one
// transition tap per step boundary.
func TotalTapsToComplete(seq model.Sequence) int {
	if seq.Len() == 0 {
		return 0
	}
	return seq.TotalReps() + seq.Len() - 1
}

// Resolve computes the view for taps against seq. It panics if seq has no
// steps.
func Resolve(seq model.Sequence, taps int, complete bool) View {
	n := seq.Len()
	if n == 0 {
		panic("progress: resolve called with an empty sequence")
	}
	if taps < 0 {
		taps = 0
	}
	if !complete {
		accumulated := 0
		for i := 0; i < n; i++ {
			st := seq.Step(i)
			start := accumulated + i
			if taps <= start+st.Repetitions {
				done := taps - start
				if done < 0 {
					done = 0
				}
				return View{
					StepIndex:            i,
					TotalSteps:           n,
					StepLabel:            st.Label,
					StepSublabel:         st.Sublabel,
					StepRepetitions:      st.Repetitions,
					RepsDone:             done,
					IsTransitionBoundary: i > 0 && taps == start,
				}
			}
			accumulated += st.Repetitions
		}
	}
	last := seq.Step(n - 1)
	return View{
		StepIndex:       n - 1,
		TotalSteps:      n,
		StepLabel:       last.Label,
		StepSublabel:    last.Sublabel,
		StepRepetitions: last.Repetitions,
		RepsDone:        last.Repetitions,
	}
}

// Fraction returns overall completion in [0, 1].
func Fraction(seq model.Sequence, taps int) float64 {
	total := TotalTapsToComplete(seq)
	if total <= 0 {
		return 0
	}
	if taps >= total {
		return 1
	}
	if taps <= 0 {
		return 0
	}
	return float64(taps) / float64(total)
}
