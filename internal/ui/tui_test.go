package ui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTUIRenderer_ErrorsForNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	cfg := NewConfig(&bytes.Buffer{})

	// When: creating TUI renderer
	r, err := NewTUIRenderer(cfg)

	// Then: refuses
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestIndexingModel_StageIndicators(t *testing.T) {
	// Given: a model in the extraction stage
	tracker := NewProgressTracker()
	tracker.SetStage(StageExtracting, 10)
	model := newIndexingModel(tracker, "/home/me/.data")

	// When: rendering
	view := model.View()

	// Then: every stage and the notes dir are shown
	for _, name := range []string{"Scan", "Read", "Render", "Write"} {
		assert.Contains(t, view, name)
	}
	assert.Contains(t, view, "/home/me/.data")
}

func TestIndexingModel_ProgressDisplay(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageExtracting, 40)
	tracker.Update(10, "journal/Trip.md")
	model := newIndexingModel(tracker, "")
	model.styles = NoColorStyles()

	view := model.View()

	assert.Contains(t, view, "10 / 40 notes")
	assert.Contains(t, view, "25%")
	assert.Contains(t, view, "Trip.md")
}

func TestIndexingModel_UnknownTotal(t *testing.T) {
	tracker := NewProgressTracker()
	model := newIndexingModel(tracker, "")

	assert.Contains(t, model.View(), "Scanning...")
}

func TestIndexingModel_StatusBar(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.AddError(ErrorEvent{File: "broken.md", Err: assert.AnError})
	tracker.AddError(ErrorEvent{File: "short.md", Err: assert.AnError, IsWarn: true})
	tracker.AddError(ErrorEvent{File: "short2.md", Err: assert.AnError, IsWarn: true})
	model := newIndexingModel(tracker, "")

	view := model.View()

	assert.Contains(t, view, "2 warnings")
	assert.Contains(t, view, "1 errors")
	assert.Contains(t, view, "q to quit")
}

func TestIndexingModel_CompleteMessageQuits(t *testing.T) {
	// Given: a running model
	model := newIndexingModel(NewProgressTracker(), "")

	// When: the run completes
	next, cmd := model.Update(completeMsg(CompletionStats{Notes: 7, Tags: 3, Pages: 5, Removed: 1}))

	// Then: the summary is shown and the program quits
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	view := next.View()
	assert.Contains(t, view, "Index Complete")
	assert.Contains(t, view, "Notes:")
	assert.Contains(t, view, "7")
	assert.Contains(t, view, "Removed:")
}

func TestIndexingModel_DryRunComplete(t *testing.T) {
	model := newIndexingModel(NewProgressTracker(), "")
	model.complete = true
	model.stats = CompletionStats{DryRun: true}

	assert.Contains(t, model.View(), "Dry Run Complete")
}

func TestIndexingModel_QuitKey(t *testing.T) {
	model := newIndexingModel(NewProgressTracker(), "")

	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", next.View())
}

func TestIndexingModel_WindowResize(t *testing.T) {
	model := newIndexingModel(NewProgressTracker(), "")

	model.Update(tea.WindowSizeMsg{Width: 30, Height: 10})

	assert.Equal(t, 30, model.width)
	assert.Equal(t, 20, model.progressBar.Width)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 15*time.Second, "2m 15s"},
		{time.Hour + 5*time.Minute, "1h 5m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.in))
		})
	}
}

func TestTruncateFilePath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		maxLen int
		want   string
	}{
		{"short", "journal/a.md", 50, "journal/a.md"},
		{"empty", "", 10, ""},
		{"keeps file name", "journal/2024/january/week-one/trip.md", 20, ".../week-one/trip.md"},
		{"no directory", "a-very-long-note-name.md", 10, "...name.md"},
		{"tiny limit", "journal/a.md", 3, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateFilePath(tt.path, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), max(tt.maxLen, 3))
		})
	}
}
