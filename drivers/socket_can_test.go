package drivers

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"

	"scrollchart/config"
	"scrollchart/signals"
)

type fakeReceiver struct {
	frames []can.Frame
	errors map[int]bool
	i      int
	err    error
}

func (f *fakeReceiver) Receive() bool {
	f.i++
	return f.i <= len(f.frames)
}

func (f *fakeReceiver) Frame() can.Frame {
	return f.frames[f.i-1]
}

func (f *fakeReceiver) HasErrorFrame() bool {
	return f.errors[f.i-1]
}

func (f *fakeReceiver) ErrorFrame() socketcan.ErrorFrame {
	return socketcan.ErrorFrame{}
}

func (f *fakeReceiver) Err() error {
	return f.err
}

func TestSocketCAN_ReceiveDecodesFrames(t *testing.T) {
	t.Parallel()

	table, err := signals.NewTable([]signals.Signal{
		{ID: 0x100, Key: "rpm", Start: 0, Length: 16},
		{ID: 0x200, Key: "coolant", Start: 0, Length: 8, Offset: -40},
	})
	require.NoError(t, err)

	sink := &collectSink{}
	driver := NewSocketCAN(&config.SocketCANFlags{SocketCanAddr: "vcan0"}, table, sink, nil)
	receiver := &fakeReceiver{
		frames: []can.Frame{
			{ID: 0x100, Length: 2, Data: can.Data{0x10, 0x27}},
			{ID: 0x200, Length: 1, Data: can.Data{120}},
			{ID: 0x100, Length: 2, IsRemote: true},
			{ID: 0x300, Length: 1, Data: can.Data{1}},
		},
		errors: map[int]bool{3: true},
		err:    errors.New("bus off"),
	}

	assert.EqualError(t, driver.receive(context.Background(), receiver), "bus off")
	samples := sink.all()
	require.Len(t, samples, 2)
	assert.Equal(t, Sample{Series: "rpm", Value: 10000}, samples[0])
	assert.Equal(t, Sample{Series: "coolant", Value: 80}, samples[1])
}

func TestSocketCAN_Init(t *testing.T) {
	t.Parallel()

	table, err := signals.NewTable([]signals.Signal{{ID: 1, Key: "a", Length: 8}})
	require.NoError(t, err)

	assert.Error(t, NewSocketCAN(&config.SocketCANFlags{SocketCanAddr: "can0"}, nil, &collectSink{}, nil).Init(context.Background()))

	driver := NewSocketCAN(&config.SocketCANFlags{SocketCanAddr: "can7"}, table, &collectSink{}, nil)
	var dialled string
	driver.dial = func(_ context.Context, network, address string) (net.Conn, error) {
		dialled = network + ":" + address
		return nil, errors.New("no such device")
	}
	assert.ErrorContains(t, driver.Init(context.Background()), "no such device")
	assert.Equal(t, "can:can7", dialled)

	assert.Error(t, driver.Run(context.Background()), "run before init")
}
