// Package tui holds the terminal views shown while an evaluation runs.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/commutesim/internal/batch"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/report"
)

// ProgressState is the phase of the progress view.
type ProgressState int

const (
	// ProgressRunning means the evaluation is in flight.
	ProgressRunning ProgressState = iota
	// ProgressCanceling means the user asked to stop and the evaluation is winding down.
	ProgressCanceling
	// ProgressDone means the evaluation returned.
	ProgressDone
)

const (
	defaultWidth = 60
	maxBarWidth  = 80
	padding      = 2
)

// ProgressMsg carries a batch progress snapshot into the model.
type ProgressMsg batch.ProgressSnapshot

// DoneMsg is sent once the evaluation returns.
type DoneMsg struct {
	Result *engine.AggregateResult
	Err    error
}

// ProgressModel is the Bubble Tea model for the progress view.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View.
type ProgressModel struct {
	title    string
	bar      progress.Model
	spinner  spinner.Model
	snapshot batch.ProgressSnapshot
	state    ProgressState
	cancel   context.CancelFunc

	result *engine.AggregateResult
	err    error

	label lipgloss.Style
	muted lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
}

// NewProgressModel creates a ProgressModel. cancel is called when the user interrupts.
func NewProgressModel(title string, cancel context.CancelFunc) ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(report.ColorHighlight)

	bar := progress.New(
		progress.WithGradient(string(report.ColorHighlight), string(report.ColorHeader)),
		progress.WithWidth(defaultWidth),
	)

	return ProgressModel{
		title:   title,
		bar:     bar,
		spinner: sp,
		cancel:  cancel,
		label:   lipgloss.NewStyle().Foreground(report.ColorLabel),
		muted:   lipgloss.NewStyle().Foreground(report.ColorMuted),
		ok:      lipgloss.NewStyle().Foreground(report.ColorOK).Bold(true),
		warn:    lipgloss.NewStyle().Foreground(report.ColorWarning).Bold(true),
	}
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles progress, completion and key messages.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.state == ProgressRunning {
				m.state = ProgressCanceling
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-padding*2, 10), maxBarWidth)
		return m, nil

	case ProgressMsg:
		m.snapshot = batch.ProgressSnapshot(msg)
		return m, m.bar.SetPercent(m.snapshot.PercentComplete / 100)

	case DoneMsg:
		m.state = ProgressDone
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		if bar, ok := pm.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd

	case spinner.TickMsg:
		if m.state == ProgressDone {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the bar and counters.
func (m ProgressModel) View() string {
	var b strings.Builder
	pad := strings.Repeat(" ", padding)

	switch m.state {
	case ProgressDone:
		if m.err != nil {
			fmt.Fprintf(&b, "%s%s %s\n", pad, m.warn.Render("stopped"), m.title)
		} else {
			fmt.Fprintf(&b, "%s%s %s\n", pad, m.ok.Render("done"), m.title)
		}
		return b.String()
	case ProgressCanceling:
		fmt.Fprintf(&b, "%s%s %s\n", pad, m.spinner.View(), m.warn.Render("canceling..."))
	default:
		fmt.Fprintf(&b, "%s%s %s\n", pad, m.spinner.View(), m.title)
	}

	fmt.Fprintf(&b, "%s%s\n", pad, m.bar.ViewAs(m.snapshot.PercentComplete/100))
	fmt.Fprintf(&b, "%s%s\n", pad, m.label.Render(fmt.Sprintf("%s / %s individuals  %s/s  %s",
		report.FormatNumber(int64(m.snapshot.ProcessedItems)),
		report.FormatNumber(int64(m.snapshot.TotalItems)),
		report.FormatNumber(int64(m.snapshot.ItemsPerSecond)),
		m.snapshot.ElapsedTime.Truncate(100*time.Millisecond))))
	fmt.Fprintf(&b, "%s%s\n", pad, m.muted.Render("q to cancel"))
	return b.String()
}

// State returns the current phase.
func (m ProgressModel) State() ProgressState { return m.state }

// Result returns the evaluation outcome once the model is done.
func (m ProgressModel) Result() (*engine.AggregateResult, error) { return m.result, m.err }
