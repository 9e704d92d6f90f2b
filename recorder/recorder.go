// Package recorder logs every inserted point so a session can be replayed later.
package recorder

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"scrollchart/events"
	"scrollchart/utils"
)

const (
	LOG_DIR              = "logs"
	LOG_NAME             = "samples"
	LOG_EXT              = ".csv"
	WRITE_EVERY_N_FRAMES = 100
	EVENT_BUFFER         = 4096
)

var header = []string{"x", "chart", "series", "y"}

type Recorder struct {
	dir    string
	hub    *events.Hub[*events.Event]
	logger *slog.Logger

	path   string
	file   *os.File
	events <-chan *events.Event
	cancel func()
}

func New(dir string, hub *events.Hub[*events.Event], logger *slog.Logger) *Recorder {
	if dir == "" {
		dir = LOG_DIR
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{dir: dir, hub: hub, logger: logger}
}

// Open creates the next free log file and starts listening. Events broadcast after Open returns
// are recorded once Run is called.
func (r *Recorder) Open() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	r.path = utils.NextAvailableFilename(r.dir, LOG_NAME, LOG_EXT)
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("couldn't open sample log: %w", err)
	}
	r.file = file
	_, r.events, r.cancel = r.hub.SubscribeLossless(EVENT_BUFFER)
	return nil
}

// Path is the file being written, empty before Open.
func (r *Recorder) Path() string {
	return r.path
}

// Run writes events until ctx is cancelled, then drains what is already queued and closes the file.
func (r *Recorder) Run(ctx context.Context) error {
	if r.file == nil {
		if err := r.Open(); err != nil {
			return err
		}
	}
	defer func() {
		r.cancel()
		if err := r.file.Close(); err != nil {
			r.logger.Warn("couldn't close sample log", "error", err)
		}
	}()

	buffered := bufio.NewWriterSize(r.file, 1<<16)
	writer := csv.NewWriter(buffered)
	flush := func() error {
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
		return buffered.Flush()
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	r.logger.Info("recording samples", "path", r.path)
	rows := 0
	write := func(e *events.Event) error {
		record := []string{
			strconv.FormatFloat(e.X, 'f', -1, 64),
			e.ChartKey,
			e.SeriesKey,
			strconv.FormatFloat(e.Y, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
		rows++
		if rows%WRITE_EVERY_N_FRAMES == 0 {
			return flush()
		}
		return nil
	}

	for {
		select {
		case e, ok := <-r.events:
			if !ok {
				return flush()
			}
			if err := write(e); err != nil {
				return err
			}
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-r.events:
					if !ok {
						return flush()
					}
					if err := write(e); err != nil {
						return err
					}
				default:
					r.logger.Info("stopped recording", "path", r.path, "rows", rows)
					return flush()
				}
			}
		}
	}
}
