package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/commutesim/internal/batch"
	"github.com/rshade/commutesim/internal/engine"
)

// minProgressInterval throttles progress messages sent to the program.
const minProgressInterval = 50 * time.Millisecond

// EvaluateFunc runs an evaluation, reporting progress to onProgress.
type EvaluateFunc func(ctx context.Context, onProgress func(batch.ProgressSnapshot)) (*engine.AggregateResult, error)

// RunWithProgress runs eval behind a progress bar drawn on out, reading keys
// from in (nil disables input). It returns eval's result; an interrupt cancels eval's context.
func RunWithProgress(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	title string,
	eval EvaluateFunc,
) (*engine.AggregateResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		NewProgressModel(title, cancel),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	var (
		mu   sync.Mutex
		last time.Time
	)
	onProgress := func(s batch.ProgressSnapshot) {
		mu.Lock()
		now := time.Now()
		if now.Sub(last) < minProgressInterval && s.ProcessedBatches < s.TotalBatches {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		p.Send(ProgressMsg(s))
	}

	done := make(chan DoneMsg, 1)
	go func() {
		res, err := eval(ctx, onProgress)
		msg := DoneMsg{Result: res, Err: err}
		done <- msg
		p.Send(msg)
	}()

	final, runErr := p.Run()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		cancel()
		<-done
		return nil, fmt.Errorf("running progress view: %w", runErr)
	}

	// The program may stop before DoneMsg arrives when ctx is cancelled.
	if m, ok := final.(ProgressModel); ok && m.State() == ProgressDone {
		return m.Result()
	}
	msg := <-done
	return msg.Result, msg.Err
}
