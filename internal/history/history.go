// Package history summarizes and renders completed sessions.
package history

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/verte-zerg/dhikr/internal/model"
)

const terminalWidthBackup = 80

// Summary aggregates completed sessions.
type Summary struct {
	Sessions      int
	TotalReps     int
	Duration      time.Duration
	ActiveDays    int
	CurrentStreak int
	BestStreak    int
}

// Summarize aggregates records. Days are bucketed in now's location; the
// current streak counts consecutive active days ending today or yesterday.
func Summarize(records []model.SessionRecord, now time.Time) Summary {
	var s Summary
	days := map[time.Time]struct{}{}
	loc := now.Location()
	for _, r := range records {
		s.Sessions++
		s.TotalReps += r.TotalReps
		if d := r.EndedAt.Sub(r.StartedAt); d > 0 {
			s.Duration += d
		}
		days[dayOf(r.EndedAt, loc)] = struct{}{}
	}
	s.ActiveDays = len(days)

	today := dayOf(now, loc)
	start := today
	if _, ok := days[today]; !ok {
		start = today.AddDate(0, 0, -1)
	}
	for d := start; ; d = d.AddDate(0, 0, -1) {
		if _, ok := days[d]; !ok {
			break
		}
		s.CurrentStreak++
	}

	for d := range days {
		if _, ok := days[d.AddDate(0, 0, -1)]; ok {
			continue
		}
		run := 0
		for cur := d; ; cur = cur.AddDate(0, 0, 1) {
			if _, ok := days[cur]; !ok {
				break
			}
			run++
		}
		if run > s.BestStreak {
			s.BestStreak = run
		}
	}
	return s
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// RenderSummary prints the summary block.
func RenderSummary(w io.Writer, s Summary) error {
	if s.Sessions == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", s.Sessions),
		fmt.Sprintf("Total reps: %d", s.TotalReps),
		fmt.Sprintf("Time counting: %s", s.Duration.Round(time.Second)),
		fmt.Sprintf("Active days: %d", s.ActiveDays),
		fmt.Sprintf("Current streak: %d", s.CurrentStreak),
		fmt.Sprintf("Best streak: %d", s.BestStreak),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderSessions prints one row per session, fitted to width cells.
func RenderSessions(w io.Writer, records []model.SessionRecord, lang string, width int) error {
	if len(records) == 0 {
		return nil
	}
	headers := []string{"Ended", "Source", "Name", "Reps", "Duration"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.Ref.String(),
			r.Name.Resolve(lang),
			fmt.Sprintf("%d", r.TotalReps),
			r.EndedAt.Sub(r.StartedAt).Round(time.Second).String(),
		})
	}
	rightAlign := map[int]bool{3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, truncate(line, width)); err != nil {
			return err
		}
	}
	return nil
}

// TerminalWidth returns the width of f when it is a terminal.
func TerminalWidth(f *os.File) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return terminalWidthBackup
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return terminalWidthBackup
	}
	return w
}
