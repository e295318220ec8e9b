package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pascope/internal/driver"
	"pascope/internal/ui"
)

type analyzeOutcome struct {
	result *driver.Result
	err    error
}

// analyzeWithUI runs the analysis in the background and renders its
// progress events until the pipeline closes the channel.
func analyzeWithUI(ctx context.Context, title string, opts driver.Options) (*driver.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan analyzeOutcome, 1)

	go func() {
		o := opts
		o.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Analyze(ctx, o)
		outcomeCh <- analyzeOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the program returns early on ctrl+c; stop the pipeline and drain it
	cancel()
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
