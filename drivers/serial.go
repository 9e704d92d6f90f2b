package drivers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"scrollchart/config"
	"scrollchart/signals"
)

var errBadLine = errors.New("error line is not name=value")

// Arduino & clones common VIDs
var preferredVIDs = map[string]bool{
	"2341": true, // Arduino
	"2A03": true, // Arduino (older)
	"1A86": true, // CH340
	"10C4": true, // CP210x
	"0403": true, // FTDI
}

// Serial reads samples from a microcontroller. Text mode expects one "name=value" (or
// "name,value") per line, binary mode expects framed records decoded through a signal table.
type Serial struct {
	*config.SerialFlags
	decoder signals.Decoder
	sink    Sink
	logger  *slog.Logger
	port    io.ReadCloser

	openPort  func(name string, mode *serial.Mode) (serial.Port, error)
	listPorts func() ([]*enumerator.PortDetails, error)
}

func NewSerial(serialFlags *config.SerialFlags, decoder signals.Decoder, sink Sink, logger *slog.Logger) *Serial {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Serial{
		SerialFlags: serialFlags,
		decoder:     decoder,
		sink:        sink,
		logger:      logger,
		openPort:    serial.Open,
		listPorts:   enumerator.GetDetailedPortsList,
	}
}

func (s *Serial) Init(ctx context.Context) error {
	if s.Binary && s.decoder == nil {
		return fmt.Errorf("binary serial needs a signal table")
	}
	name := s.SerialPort
	if name == "" || name == "auto" {
		ports, err := s.listPorts()
		if err != nil {
			return fmt.Errorf("enumerate ports: %w", err)
		}
		name, err = pickPort(ports)
		if err != nil {
			return fmt.Errorf("auto-select: %w", err)
		}
	}
	port, err := s.openPort(name, &serial.Mode{BaudRate: s.BaudRate})
	if err != nil {
		return fmt.Errorf("couldn't open serial %s: %w", name, err)
	}
	s.logger.Info("connected", "port", name, "baud", s.BaudRate)
	s.port = port
	return nil
}

// Run blocks until the port is closed or ctx is cancelled.
func (s *Serial) Run(ctx context.Context) error {
	if s.port == nil {
		return fmt.Errorf("serial port not initialised")
	}
	stop := context.AfterFunc(ctx, func() { _ = s.port.Close() })
	defer func() {
		if stop() {
			_ = s.port.Close()
		}
	}()

	var err error
	if s.Binary {
		err = processBinary(ctx, s.port, s.decoder, s.sink, s.logger)
	} else {
		err = processText(ctx, s.port, s.sink, s.logger)
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func processText(ctx context.Context, reader io.Reader, sink Sink, logger *slog.Logger) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseLine(line)
		if err != nil {
			logger.Debug("skipping line", "line", line, "error", err)
			continue
		}
		sink.Push(Sample{Series: key, Value: value, At: time.Now()})
	}
	return scanner.Err()
}

func parseLine(line string) (string, float64, error) {
	key, raw, ok := strings.Cut(line, "=")
	if !ok {
		key, raw, ok = strings.Cut(line, ",")
	}
	if !ok {
		return "", 0, errBadLine
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", 0, errBadLine
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("value %q: %w", raw, errBadLine)
	}
	return key, value, nil
}

func pickPort(ports []*enumerator.PortDetails) (string, error) {
	// Look for the first matching "arduino port"
	for _, p := range ports {
		if p.IsUSB && preferredVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("no arduino serial ports found")
}
