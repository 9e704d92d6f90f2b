package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"scrollchart/config"
	"scrollchart/drivers"
	"scrollchart/engine"
	"scrollchart/events"
	"scrollchart/recorder"
	"scrollchart/signals"
	"scrollchart/store"
)

// app is everything between a sample source and a renderer.
type app struct {
	engine   *engine.Engine
	driver   drivers.Driver
	recorder *recorder.Recorder
	logger   *slog.Logger
}

func newApp(ctx context.Context, flags *config.Flags, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't load config: %w", err)
	}
	if flags.Interval > 0 {
		cfg.PollInterval = flags.Interval
	}

	metrics := cfg.MetricTable()
	points := events.NewEventHub()
	charts, err := cfg.BuildCharts(metrics, points)
	if err != nil {
		return nil, fmt.Errorf("couldn't build charts: %w", err)
	}

	opts := engine.Options{
		PollInterval:  cfg.PollInterval,
		FrameInterval: cfg.FrameInterval(),
		Logger:        logger,
	}
	if flags.Driver.Polled() {
		opts.Provider, err = newProvider(flags, metrics, logger)
		if err != nil {
			return nil, err
		}
	}

	a := &app{engine: engine.New(charts, opts), logger: logger}
	if !flags.Driver.Polled() {
		a.driver, err = newDriver(flags, cfg, a.engine, logger)
		if err != nil {
			return nil, err
		}
		if err := a.driver.Init(ctx); err != nil {
			return nil, fmt.Errorf("couldn't init driver: %w", err)
		}
	}

	if flags.Record {
		a.recorder = recorder.New(recorder.LOG_DIR, points, logger)
		if err := a.recorder.Open(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func newProvider(flags *config.Flags, metrics *store.MetricTable, logger *slog.Logger) (drivers.Provider, error) {
	seed := uint64(time.Now().UnixNano())
	random := drivers.NewRandomProvider(metrics, rand.New(rand.NewPCG(seed, seed>>1)))
	switch flags.Driver {
	case config.System:
		return drivers.NewSystemProvider(), nil
	case config.Log:
		return drivers.NewLogProvider(flags.LogFile, random, logger), nil
	case config.Random:
		return random, nil
	}
	return nil, fmt.Errorf("driver %q is not polled", flags.Driver)
}

func newDriver(flags *config.Flags, cfg *config.Config, sink drivers.Sink, logger *slog.Logger) (drivers.Driver, error) {
	table, err := cfg.SignalTable()
	if err != nil {
		return nil, fmt.Errorf("couldn't build signal table: %w", err)
	}
	// a nil *Table must stay a nil interface so the drivers can tell it is missing
	var decoder signals.Decoder
	var frameDecoder signals.FrameDecoder
	if table != nil {
		decoder, frameDecoder = table, table
	}

	switch flags.Driver {
	case config.Serial:
		return drivers.NewSerial(flags.Serial, decoder, sink, logger), nil
	case config.SocketCAN:
		return drivers.NewSocketCAN(flags.SocketCAN, frameDecoder, sink, logger), nil
	case config.Replay:
		return drivers.NewReplayer(flags.Replay, sink, logger), nil
	}
	return nil, fmt.Errorf("unsupported driver type: %s", flags.Driver)
}

// run blocks until ctx is cancelled and every part has stopped.
func (a *app) run(ctx context.Context) error {
	var wg sync.WaitGroup
	if a.recorder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.recorder.Run(ctx); err != nil {
				a.logger.Error("recorder stopped", "error", err)
			}
		}()
	}
	if a.driver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("error running driver", "error", err)
			}
		}()
	}

	err := a.engine.Run(ctx)
	wg.Wait()
	return err
}
