package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"scrollchart/config"
	"scrollchart/ui/tui"
)

const (
	TUI_LOG_FILE = "scrollchart.log"
	TUI_BUFFER   = 64
)

func newTUICmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Draw the charts as sparklines in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTUI(ctx, flags)
		},
	}
}

func runTUI(ctx context.Context, flags *config.Flags) error {
	// the terminal belongs to the program, so logs go to a file when asked for
	var logOut io.Writer = io.Discard
	if flags.Verbose {
		f, err := os.OpenFile(TUI_LOG_FILE, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("couldn't open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut, flags.Verbose)

	a, err := newApp(ctx, flags, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopped := make(chan error, 1)
	go func() {
		stopped <- a.run(ctx)
	}()

	_, frames, unsubscribe := a.engine.Frames().Subscribe(TUI_BUFFER)
	defer unsubscribe()
	initial, err := a.engine.Snapshot(ctx)
	if err != nil {
		cancel()
		<-stopped
		return err
	}

	program := tea.NewProgram(tui.NewModel(a.engine, frames, initial), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	cancel()
	if runErr := <-stopped; err == nil {
		err = runErr
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
