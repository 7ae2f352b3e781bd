package progressui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/scanner"
)

type emptyEnumerator struct{}

func (emptyEnumerator) OpenDir(string) (fsiface.DirHandle, error) { return emptyDirHandle{}, nil }
func (emptyEnumerator) Stat(string) (fsiface.RootInfo, error)     { return fsiface.RootInfo{}, nil }
func (emptyEnumerator) StatEntry(string) (fsiface.Entry, error)   { return fsiface.Entry{}, nil }
func (emptyEnumerator) ComputeOwner(string) (string, error)       { return "", nil }

type emptyDirHandle struct{}

func (emptyDirHandle) Next() (fsiface.Entry, bool, error) { return fsiface.Entry{}, false, nil }
func (emptyDirHandle) Close() error                       { return nil }

func newTestScanner() *scanner.Scanner {
	return scanner.New(emptyEnumerator{}, scanner.Options{})
}

func TestViewRendersWithoutSizeBeforeWindowSize(t *testing.T) {
	done := make(chan error, 1)
	m := newModel(newTestScanner(), done)

	if got := m.View(); got == "" {
		t.Fatal("expected non-empty placeholder view before a WindowSizeMsg")
	}
}

func TestViewRendersAfterWindowSizeAndProgress(t *testing.T) {
	done := make(chan error, 1)
	m := newModel(newTestScanner(), done)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(model)

	m.snapshot.TalliedBytes = 50
	m.snapshot.EstimatedTotalBytes = 100

	view := m.View()
	if view == "" {
		t.Fatal("expected non-empty view")
	}
}

func TestPauseAndResumeKeysTogglePausedState(t *testing.T) {
	done := make(chan error, 1)
	m := newModel(newTestScanner(), done)

	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = updated.(model)
	if !m.paused {
		t.Fatal("expected paused=true after pause key")
	}

	updated, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = updated.(model)
	if m.paused {
		t.Fatal("expected paused=false after resume key")
	}
}

func TestScanDoneMsgMarksFinishedAndQuits(t *testing.T) {
	done := make(chan error, 1)
	m := newModel(newTestScanner(), done)

	updated, cmd := m.Update(scanDoneMsg{err: nil})
	m = updated.(model)
	if !m.finished {
		t.Fatal("expected finished=true after scanDoneMsg")
	}
	if cmd == nil {
		t.Fatal("expected a tea.Quit command")
	}
}
