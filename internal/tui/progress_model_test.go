package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/commutesim/internal/batch"
	"github.com/rshade/commutesim/internal/engine"
)

func update(t *testing.T, m ProgressModel, msg tea.Msg) (ProgressModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(ProgressModel)
	require.True(t, ok)
	return pm, cmd
}

func TestProgressModel_Progress(t *testing.T) {
	m := NewProgressModel("Evaluating office", nil)
	assert.NotNil(t, m.Init())
	assert.Equal(t, ProgressRunning, m.State())

	m, cmd := update(t, m, ProgressMsg(batch.ProgressSnapshot{
		TotalItems:       20000,
		ProcessedItems:   5000,
		TotalBatches:     4,
		ProcessedBatches: 1,
		PercentComplete:  25,
		ElapsedTime:      1500 * time.Millisecond,
		ItemsPerSecond:   3333,
	}))
	assert.NotNil(t, cmd, "bar animates towards the new percentage")

	view := m.View()
	assert.Contains(t, view, "Evaluating office")
	assert.Contains(t, view, "5,000 / 20,000 individuals")
	assert.Contains(t, view, "1.5s")
	assert.Contains(t, view, "q to cancel")
}

func TestProgressModel_Cancel(t *testing.T) {
	canceled := 0
	m := NewProgressModel("x", func() { canceled++ })

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, ProgressCanceling, m.State())
	assert.Contains(t, m.View(), "canceling")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, canceled, "cancel runs once")

	m, cmd := update(t, m, DoneMsg{Err: context.Canceled})
	require.NotNil(t, cmd)
	assert.Equal(t, ProgressDone, m.State())
	assert.Contains(t, m.View(), "stopped")
	_, err := m.Result()
	require.ErrorIs(t, err, context.Canceled)
}

func TestProgressModel_Done(t *testing.T) {
	m := NewProgressModel("x", nil)
	want := &engine.AggregateResult{Runs: 3}

	m, cmd := update(t, m, DoneMsg{Result: want})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "done")

	got, err := m.Result()
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestProgressModel_WindowSize(t *testing.T) {
	m := NewProgressModel("x", nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, maxBarWidth, m.bar.Width)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 30, Height: 40})
	assert.Equal(t, 26, m.bar.Width)
}

func TestRunWithProgress(t *testing.T) {
	want := &engine.AggregateResult{Runs: 2}
	var out bytes.Buffer

	got, err := RunWithProgress(context.Background(), nil, &out, "test",
		func(_ context.Context, onProgress func(batch.ProgressSnapshot)) (*engine.AggregateResult, error) {
			onProgress(batch.ProgressSnapshot{TotalItems: 10, ProcessedItems: 10, TotalBatches: 1, ProcessedBatches: 1, PercentComplete: 100})
			return want, nil
		})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRunWithProgress_Error(t *testing.T) {
	boom := errors.New("boom")
	var out bytes.Buffer

	got, err := RunWithProgress(context.Background(), nil, &out, "test",
		func(context.Context, func(batch.ProgressSnapshot)) (*engine.AggregateResult, error) {
			return nil, boom
		})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}
