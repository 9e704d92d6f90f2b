package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

type DriverType string

const (
	System    DriverType = "system"
	Log       DriverType = "log"
	Random    DriverType = "random"
	Serial    DriverType = "serial"
	SocketCAN DriverType = "socket-can"
	Replay    DriverType = "replay"
)

var driverTypes = []DriverType{System, Log, Random, Serial, SocketCAN, Replay}

// Polled reports whether the driver is a pull provider sampled on the poll ticker.
func (d DriverType) Polled() bool {
	return d == System || d == Log || d == Random
}

type Flags struct {
	ConfigPath string
	Verbose    bool
	Driver     DriverType
	Addr       string
	LogFile    string
	Interval   time.Duration
	Record     bool

	Serial    *SerialFlags
	Replay    *ReplayFlags
	SocketCAN *SocketCANFlags
}

type SerialFlags struct {
	SerialPort string
	BaudRate   int
	Binary     bool
}

type ReplayFlags struct {
	Path       string
	Speed      float64
	Loop       bool
	SkipFrames int
}

type SocketCANFlags struct {
	SocketCanAddr string
}

const (
	DEFAULT_BAUD_RATE = 115200
	DEFAULT_LOG_FILE  = "hardware_usage_log.csv"
)

// BindFlags registers the acquisition flags shared by every command on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	flags := &Flags{
		Driver:    System,
		Serial:    &SerialFlags{},
		Replay:    &ReplayFlags{},
		SocketCAN: &SocketCANFlags{},
	}
	fs.StringVarP(&flags.ConfigPath, "config", "c", "", "YAML chart config, defaults are used when empty")
	fs.BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging")
	fs.Var(&driverValue{&flags.Driver}, "driver", "where samples come from: system, log, random, serial, socket-can or replay")
	fs.StringVar(&flags.LogFile, "log-file", DEFAULT_LOG_FILE, "hardware log (.csv or .xlsx) sampled by the log driver")
	fs.DurationVar(&flags.Interval, "interval", 0, "poll interval, overrides the config file")
	fs.BoolVar(&flags.Record, "record", false, "record every sample to logs/ for later replay")

	fs.StringVar(&flags.Serial.SerialPort, "serial-port", "auto", "serial device path or 'auto'")
	fs.IntVar(&flags.Serial.BaudRate, "baud", DEFAULT_BAUD_RATE, "baud rate")
	fs.BoolVar(&flags.Serial.Binary, "binary", false, "serial device sends binary frames instead of name=value lines")

	fs.StringVar(&flags.Replay.Path, "replay", "", "path to a recorded .csv to replay")
	fs.Float64Var(&flags.Replay.Speed, "replay-speed", 1.0, "replay speed multiplier (0 = as fast as possible)")
	fs.BoolVar(&flags.Replay.Loop, "replay-loop", false, "loop replay at EOF")
	fs.IntVar(&flags.Replay.SkipFrames, "replay-skip-frames", 0, "skips X amount of frames from start")

	fs.StringVar(&flags.SocketCAN.SocketCanAddr, "socket-can-address", "can0", "socket CAN bus address")
	return flags
}

type driverValue struct {
	target *DriverType
}

func (v *driverValue) String() string {
	if v.target == nil {
		return ""
	}
	return string(*v.target)
}

func (v *driverValue) Set(s string) error {
	for _, d := range driverTypes {
		if string(d) == s {
			*v.target = d
			return nil
		}
	}
	return fmt.Errorf("unknown driver %q", s)
}

func (v *driverValue) Type() string {
	return "driver"
}
