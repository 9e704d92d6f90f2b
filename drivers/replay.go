package drivers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"scrollchart/config"
)

var errBadRecord = errors.New("error replay record is not x,chart,series,y")

// Replayer feeds a recorded sample log back through a Sink, keeping the original spacing
// scaled by Speed. Speed 0 replays as fast as possible.
type Replayer struct {
	*config.ReplayFlags
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewReplayer(replayFlags *config.ReplayFlags, sink Sink, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Replayer{
		ReplayFlags: replayFlags,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

func (r *Replayer) Init(_ context.Context) error {
	if r.Path == "" {
		return fmt.Errorf("replay needs a path")
	}
	if r.Speed < 0 {
		return fmt.Errorf("replay speed %v must not be negative", r.Speed)
	}
	_, err := os.Stat(r.Path)
	return err
}

func (r *Replayer) Run(ctx context.Context) error {
	for {
		if err := r.playOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !r.Loop {
			return nil
		}
	}
}

func (r *Replayer) playOnce(ctx context.Context) error {
	file, err := os.Open(r.Path)
	if err != nil {
		return err
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			r.logger.Warn("couldn't close file", "error", err)
		}
	}(file)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var (
		first  = true
		firstX float64
		prevX  float64
		base   = r.now()
	)

	frameIndex := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			r.logger.Info("end of replay", "path", r.Path, "frames", frameIndex)
			return nil
		}
		if err != nil {
			return err
		}
		sample, x, err := parseRecord(record)
		if err != nil {
			// header or junk
			r.logger.Debug("skipping record", "record", record, "error", err)
			continue
		}

		if frameIndex < r.SkipFrames {
			frameIndex++
			continue
		}

		if first {
			first = false
			firstX, prevX = x, x
		}

		if r.Speed > 0 && x > prevX {
			delta := time.Duration((x - prevX) * float64(time.Second) / r.Speed)
			if err := r.sleep(ctx, delta); err != nil {
				return err
			}
		}
		prevX = x

		sample.At = base.Add(time.Duration((x - firstX) * float64(time.Second)))
		r.sink.Push(sample)
		frameIndex++
	}
}

func parseRecord(record []string) (Sample, float64, error) {
	if len(record) != 4 {
		return Sample{}, 0, errBadRecord
	}
	x, err := strconv.ParseFloat(record[0], 64)
	if err != nil {
		return Sample{}, 0, fmt.Errorf("x %q: %w", record[0], errBadRecord)
	}
	y, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return Sample{}, 0, fmt.Errorf("y %q: %w", record[3], errBadRecord)
	}
	if record[2] == "" {
		return Sample{}, 0, errBadRecord
	}
	return Sample{Chart: record[1], Series: record[2], Value: y}, x, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
