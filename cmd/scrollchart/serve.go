package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scrollchart/config"
	"scrollchart/web/handlers"
)

const DEFAULT_ADDR = ":8080"

func newServeCmd(flags *config.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the charts as a live web dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, flags)
		},
	}
	cmd.Flags().StringVar(&flags.Addr, "addr", DEFAULT_ADDR, "http listen address")
	return cmd
}

func serve(ctx context.Context, flags *config.Flags) error {
	logger := newLogger(os.Stderr, flags.Verbose)

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

	dashboard, err := handlers.NewDashboard(a.engine, logger)
	if err != nil {
		cancel()
		<-stopped
		return err
	}
	server := handlers.NewServer(dashboard, a.engine, logger)
	logger.Info("serving dashboard", "addr", flags.Addr, "driver", flags.Driver)

	err = server.Start(ctx, flags.Addr)
	cancel()
	if runErr := <-stopped; err == nil {
		err = runErr
	}
	return err
}
