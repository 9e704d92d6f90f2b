package drivers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"

	"scrollchart/config"
	"scrollchart/signals"
)

// frameReceiver is the part of socketcan.Receiver the driver reads from.
type frameReceiver interface {
	Receive() bool
	Frame() can.Frame
	HasErrorFrame() bool
	ErrorFrame() socketcan.ErrorFrame
	Err() error
}

// SocketCAN listens on a CAN interface and decodes every frame the signal table knows about.
type SocketCAN struct {
	*config.SocketCANFlags
	decoder signals.FrameDecoder
	sink    Sink
	logger  *slog.Logger

	conn net.Conn
	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewSocketCAN(flags *config.SocketCANFlags, decoder signals.FrameDecoder, sink Sink, logger *slog.Logger) *SocketCAN {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SocketCAN{
		SocketCANFlags: flags,
		decoder:        decoder,
		sink:           sink,
		logger:         logger,
		dial:           socketcan.DialContext,
	}
}

func (p *SocketCAN) Init(ctx context.Context) error {
	if p.decoder == nil {
		return fmt.Errorf("socket-can needs a signal table")
	}
	conn, err := p.dial(ctx, "can", p.SocketCanAddr)
	if err != nil {
		return fmt.Errorf("socketCAN open %s: %w", p.SocketCanAddr, err)
	}
	p.conn = conn
	p.logger.Info("connected", "interface", p.SocketCanAddr)
	return nil
}

func (p *SocketCAN) Run(ctx context.Context) error {
	if p.conn == nil {
		return fmt.Errorf("socketCAN not initialised")
	}
	stop := context.AfterFunc(ctx, func() { _ = p.conn.Close() })
	defer func() {
		if stop() {
			_ = p.conn.Close()
		}
	}()

	err := p.receive(ctx, socketcan.NewReceiver(p.conn))
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (p *SocketCAN) receive(ctx context.Context, receiver frameReceiver) error {
	for receiver.Receive() {
		if ctx.Err() != nil {
			return nil
		}
		if receiver.HasErrorFrame() {
			p.logger.Warn("error frame", "frame", fmt.Sprintf("%+v", receiver.ErrorFrame()))
			continue
		}
		pushReadings(p.sink, p.decoder.DecodeFrame(receiver.Frame()), time.Time{})
	}
	return receiver.Err()
}
