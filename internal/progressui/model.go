// Package progressui implements a live, cancellable CLI progress readout
// for a running scan — not a browsing TUI, just the `scan`/`scan-all-local`
// readout the Non-goals still leave room for (they exclude specific GUI
// widgets, not a CLI progress display).
package progressui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/briarlane/duscape/internal/node"
	"github.com/briarlane/duscape/internal/scanner"
	"github.com/briarlane/duscape/internal/util"
)

const tickInterval = 100 * time.Millisecond

type tickMsg time.Time

type scanDoneMsg struct{ err error }

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return scanDoneMsg{err: <-done}
	}
}

type model struct {
	sc   *scanner.Scanner
	done <-chan error
	keys KeyMap
	th   theme

	bar  progress.Model
	spin spinner.Model

	width, height int
	snapshot      scanner.Progress
	paused        bool
	finished      bool
	err           error
}

func newModel(sc *scanner.Scanner, done <-chan error) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2FBE"))

	return model{
		sc:   sc,
		done: done,
		keys: DefaultKeyMap(),
		th:   defaultTheme(),
		bar:  progress.New(progress.WithDefaultGradient()),
		spin: s,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spin.Tick, waitForDone(m.done))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		barWidth := m.width - 8
		if barWidth > 60 {
			barWidth = 60
		}
		if barWidth < 10 {
			barWidth = 10
		}
		m.bar.Width = barWidth
		return m, nil

	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.snapshot = m.sc.Progress()
		return m, tickCmd()

	case scanDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		newBar, cmd := m.bar.Update(msg)
		m.bar = newBar.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.sc.Cancel(errCancelledByUser)
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.sc.Cancel(errCancelledByUser)
		return m, nil
	case key.Matches(msg, m.keys.Pause):
		m.sc.Suspend()
		m.paused = true
		return m, nil
	case key.Matches(msg, m.keys.Resume):
		m.sc.Resume()
		m.paused = false
		return m, nil
	}
	return m, nil
}

var errCancelledByUser = errors.New("scan cancelled by user")

func (m model) View() string {
	if m.width == 0 {
		return "Starting scan...\n"
	}

	title := m.th.Title.Render("duscape — scanning")
	if m.paused {
		title += "  " + m.th.ErrStyle.Render("[paused]")
	}

	ratio := 0.0
	if m.snapshot.EstimatedTotalBytes > 0 {
		ratio = float64(m.snapshot.TalliedBytes) / float64(m.snapshot.EstimatedTotalBytes)
		if ratio > 1 {
			ratio = 1
		}
	}

	var barLine string
	if m.snapshot.EstimatedTotalBytes > 0 {
		barLine = m.bar.ViewAs(ratio)
	} else {
		barLine = m.spin.View() + " " + m.th.Muted.Render("estimating total size...")
	}

	stats := fmt.Sprintf(
		"%s / %s scanned",
		util.FormatSize(m.snapshot.TalliedBytes),
		util.FormatSize(m.snapshot.EstimatedTotalBytes),
	)
	statsLine := m.th.Stat.Render(stats)

	var extra []string
	if m.snapshot.DeniedDirs > 0 {
		extra = append(extra, fmt.Sprintf("%d denied", m.snapshot.DeniedDirs))
	}
	if m.snapshot.RetriedEntries > 0 {
		extra = append(extra, fmt.Sprintf("%d retried", m.snapshot.RetriedEntries))
	}
	var extraLine string
	if len(extra) > 0 {
		extraLine = m.th.Muted.Render(fmt.Sprintf("(%s)", joinComma(extra)))
	}

	help := m.th.Muted.Render("p pause · r resume · q cancel")

	lines := []string{title, "", barLine, statsLine}
	if extraLine != "" {
		lines = append(lines, extraLine)
	}
	lines = append(lines, "", help)

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	box := m.th.Modal.Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// RunScan drives sc.Scan in the background while displaying a bubbletea
// progress readout in the foreground; p/r/q map to Suspend/Resume/Cancel.
func RunScan(ctx context.Context, sc *scanner.Scanner, roots []string) (*node.Node, error) {
	done := make(chan error, 1)
	var root *node.Node
	var scanErr error
	go func() {
		root, scanErr = sc.Scan(ctx, roots)
		done <- scanErr
	}()

	p := tea.NewProgram(newModel(sc, done))
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	return root, scanErr
}
