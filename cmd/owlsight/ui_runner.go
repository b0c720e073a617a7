package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"owlsight/internal/driver"
	"owlsight/internal/ui"
)

type runOutcome struct {
	result *driver.RunResult
	err    error
}

// runWithUI runs fn while a progress model renders its events. Events are
// forwarded to the sink already set in opts as well.
func runWithUI(ctx context.Context, title string, opts driver.Options, fn func(context.Context, driver.Options) (*driver.RunResult, error)) (*driver.RunResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	opts.Sink = driver.Tee(opts.Sink, driver.ChannelSink{Ch: events})
	go func() {
		res, err := fn(ctx, opts)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// модель могла выйти раньше прогона
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
