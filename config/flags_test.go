package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlags_Defaults(t *testing.T) {
	t.Parallel()

	flags := BindFlags(pflag.NewFlagSet("test", pflag.ContinueOnError))
	assert.Equal(t, System, flags.Driver)
	assert.Equal(t, DEFAULT_LOG_FILE, flags.LogFile)
	assert.Equal(t, "auto", flags.Serial.SerialPort)
	assert.Equal(t, DEFAULT_BAUD_RATE, flags.Serial.BaudRate)
	assert.Equal(t, 1.0, flags.Replay.Speed)
	assert.Equal(t, "can0", flags.SocketCAN.SocketCanAddr)
}

func TestBindFlags_Parse(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-c", "charts.yaml",
		"-v",
		"--driver", "replay",
		"--interval", "250ms",
		"--record",
		"--replay", "logs/samples.csv",
		"--replay-speed", "0",
		"--replay-loop",
		"--binary",
	}))

	assert.Equal(t, "charts.yaml", flags.ConfigPath)
	assert.True(t, flags.Verbose)
	assert.Equal(t, Replay, flags.Driver)
	assert.False(t, flags.Driver.Polled())
	assert.Equal(t, 250*time.Millisecond, flags.Interval)
	assert.True(t, flags.Record)
	assert.Equal(t, ReplayFlags{Path: "logs/samples.csv", Speed: 0, Loop: true}, *flags.Replay)
	assert.True(t, flags.Serial.Binary)
}

func TestBindFlags_RejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(discardWriter{})
	BindFlags(fs)
	assert.Error(t, fs.Parse([]string{"--driver", "arduino"}))
}

func TestDriverType_Polled(t *testing.T) {
	t.Parallel()

	for _, d := range []DriverType{System, Log, Random} {
		assert.True(t, d.Polled(), d)
	}
	for _, d := range []DriverType{Serial, SocketCAN, Replay} {
		assert.False(t, d.Polled(), d)
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
