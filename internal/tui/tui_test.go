package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/lrc-downloader/internal/config"
	"github.com/handiism/lrc-downloader/internal/download"
	"github.com/handiism/lrc-downloader/internal/model"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestNewModel(t *testing.T) {
	s := config.DefaultSettings()
	s.LibraryPath = "/music"
	s.SearchStrategy = "closest"

	m := NewModel(s)
	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
	if m.textInput.Value() != "/music" {
		t.Errorf("input = %q, want /music", m.textInput.Value())
	}
	if !m.closest {
		t.Error("closest option should follow the configured strategy")
	}
	if !strings.Contains(m.View(), "Music library") {
		t.Error("input view not rendered")
	}
}

func TestUpdate_Options(t *testing.T) {
	m := NewModel(nil)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v"), Alt: true})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d"), Alt: true})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s"), Alt: true})
	if !m.verbose || !m.dryRun || !m.closest {
		t.Errorf("options = verbose:%v dryRun:%v closest:%v, want all set", m.verbose, m.dryRun, m.closest)
	}

	if got := m.runSettings().SearchStrategy; got != "closest" {
		t.Errorf("runSettings().SearchStrategy = %q", got)
	}
}

func TestUpdate_EnterRequiresPath(t *testing.T) {
	m := NewModel(nil)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput with an empty path", m.state)
	}
}

func TestUpdate_Logs(t *testing.T) {
	m := NewModel(nil)

	m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "hidden", Level: download.LevelVerbose}})
	if len(m.logs) != 0 {
		t.Errorf("verbose event shown without verbose mode: %v", m.logs)
	}

	for i := range 15 {
		m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: fmt.Sprintf("event %d", i), Level: download.LevelInfo}})
	}
	if len(m.logs) != maxLogs {
		t.Fatalf("logs = %d, want %d", len(m.logs), maxLogs)
	}
	if m.logs[0].Message != "event 5" {
		t.Errorf("oldest kept log = %q, want event 5", m.logs[0].Message)
	}
}

func TestUpdate_RunDone(t *testing.T) {
	m := NewModel(nil)
	m.state = StateRunning

	report := &download.Report{}
	report.Summary.Add(model.Result{Outcome: model.OutcomeDownloaded})
	report.Summary.Add(model.Result{Outcome: model.OutcomeNoLyricsFile})

	done := update(t, m, RunDoneMsg{Report: report})
	if done.state != StateComplete {
		t.Fatalf("state = %v, want StateComplete", done.state)
	}
	view := done.View()
	for _, want := range []string{"downloaded: 1", "no-lyrics-file: 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("complete view missing %q", want)
		}
	}

	failed := update(t, m, RunDoneMsg{Err: errors.New("boom")})
	if failed.state != StateError || failed.err == nil {
		t.Errorf("state = %v err = %v, want StateError", failed.state, failed.err)
	}
}

func TestUpdate_StartError(t *testing.T) {
	m := NewModel(nil)
	m.state = StateStarting

	m = update(t, m, StartedMsg{Err: errors.New("invalid settings")})
	if m.state != StateError {
		t.Errorf("state = %v, want StateError", m.state)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.state != StateInput || m.err != nil {
		t.Errorf("reset left state = %v err = %v", m.state, m.err)
	}
}

func TestPercent(t *testing.T) {
	m := NewModel(nil)
	if m.percent() != 0 {
		t.Error("percent with nothing discovered should be 0")
	}
	m.snapshot = download.Progress{Discovered: 4, Processed: 1}
	if got := m.percent(); got != 0.25 {
		t.Errorf("percent() = %v, want 0.25", got)
	}
}
