// Package tui provides the Bubble Tea counting interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/dhikr/internal/log"
	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/session"
)

// Recorder persists completed sessions.
type Recorder interface {
	RecordSession(ctx context.Context, rec model.SessionRecord) error
}

// Model implements the Bubble Tea counting UI.
type Model struct {
	config   model.Config
	session  *session.Session
	recorder Recorder
	logger   zerolog.Logger

	keys keyMap
	help help.Model
	bar  progress.Model

	width  int
	height int

	recorded  bool
	recordErr string
}

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	stepStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	sublabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
	countStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	transitionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB77E"))
	completeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB77E")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a counting TUI model around an opened session.
func NewModel(cfg model.Config, sess *session.Session, recorder Recorder) *Model {
	bar := progress.New(
		progress.WithSolidFill("#C89A3A"),
		progress.WithoutPercentage(),
		progress.WithWidth(cfg.BarWidth),
	)
	return &Model{
		config:   cfg,
		session:  sess,
		recorder: recorder,
		logger:   log.WithComponent("tui"),
		keys:     defaultKeyMap(),
		help:     help.New(),
		bar:      bar,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeBar()
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Advance):
			if m.session.Advance() {
				m.recordIfComplete()
			}
			return m, nil
		case key.Matches(msg, m.keys.Rewind):
			m.session.Rewind()
			return m, nil
		case key.Matches(msg, m.keys.Reset):
			m.session.Reset()
			m.recorded = false
			m.recordErr = ""
			return m, nil
		default:
			return m, nil
		}
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderCounter()
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) resizeBar() {
	width := m.config.BarWidth
	if m.width > 0 && width > m.width-4 {
		width = m.width - 4
	}
	if width < 1 {
		width = 1
	}
	m.bar.Width = width
}

func (m *Model) recordIfComplete() {
	if m.recorded || m.recorder == nil {
		return
	}
	rec, ok := m.session.Record()
	if !ok {
		return
	}
	m.recorded = true
	if err := m.recorder.RecordSession(context.Background(), rec); err != nil {
		m.logger.Error().Err(err).Str("ref", rec.Ref.String()).Msg("failed to save session")
		m.recordErr = "Could not save this session to history."
	}
}

func (m *Model) renderCounter() string {
	snap := m.session.Snapshot()
	if !snap.HasView {
		return stepStyle.Render("No sequence loaded.")
	}
	lang := m.config.Lang
	view := snap.View
	maxWidth := m.textWidth()

	lines := []string{
		titleStyle.Render(fit(snap.Name.Resolve(lang), maxWidth)),
		stepStyle.Render(fmt.Sprintf("Step %d/%d", view.StepIndex+1, view.TotalSteps)),
		"",
		labelStyle.Render(fit(view.StepLabel.Resolve(lang), maxWidth)),
	}
	if sub := view.StepSublabel.Resolve(lang); sub != "" {
		lines = append(lines, sublabelStyle.Render(fit(sub, maxWidth)))
	}
	lines = append(lines,
		"",
		countStyle.Render(fmt.Sprintf("%d / %d", view.RepsDone, view.StepRepetitions)),
		stepStyle.Render(fmt.Sprintf("%d left", view.RepsRemaining())),
		"",
		m.bar.ViewAs(snap.Fraction),
		stepStyle.Render(fmt.Sprintf("%d of %d taps", snap.State.Taps, snap.TapsToComplete)),
	)

	switch {
	case snap.Phase == session.PhaseComplete:
		lines = append(lines, "", completeStyle.Render("Complete. Press r to start again."))
	case view.IsTransitionBoundary:
		lines = append(lines, "", transitionStyle.Render("Step complete. Continue with "+fit(view.StepLabel.Resolve(lang), maxWidth)))
	}
	if m.recordErr != "" {
		lines = append(lines, errorStyle.Render(m.recordErr))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFooter() string {
	return footerStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) textWidth() int {
	if m.width <= 0 {
		return 0
	}
	w := int(float64(m.width) * 0.8)
	if w < 1 {
		w = 1
	}
	return w
}

func fit(s string, width int) string {
	s = strings.TrimSpace(s)
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
