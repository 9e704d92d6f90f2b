package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"scrollchart/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "scrollchart",
		Short:        "Live scrolling line charts for metrics and bus signals",
		Long:         "Samples system metrics, hardware logs, serial devices or a CAN bus and draws them as scrolling charts in the browser or the terminal.",
		SilenceUsage: true,
	}
	flags := config.BindFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newTUICmd(flags))
	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
