package drivers

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrollchart/signals"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestEncodeFrame_RoundTripsThroughReader(t *testing.T) {
	t.Parallel()

	rec, err := encodeFrame(frame{millis: 0x01020304, id: 0x0102, data: []byte{0xDE, 0xAD}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x55, 0x04, 0x03, 0x02, 0x01, 0x01, 0x02, 0x02, 0xDE, 0xAD}, rec[:11])

	// garbage and a lone AA before the frame are skipped
	stream := append([]byte{0x00, 0xAA, 0x13}, rec...)
	f, err := readBinaryFrame(bufio.NewReader(bytes.NewReader(stream)))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), f.millis)
	assert.Equal(t, uint16(0x0102), f.id)
	assert.Equal(t, []byte{0xDE, 0xAD}, f.data)
}

func TestReadBinaryFrame_Errors(t *testing.T) {
	t.Parallel()

	rec, err := encodeFrame(frame{id: 1, data: []byte{1}})
	require.NoError(t, err)
	rec[len(rec)-1] ^= 0xFF
	_, err = readBinaryFrame(bufio.NewReader(bytes.NewReader(rec)))
	assert.ErrorIs(t, err, errBadCRC)

	tooLong := []byte{0xAA, 0x55, 0, 0, 0, 0, 0, 1, 200}
	_, err = readBinaryFrame(bufio.NewReader(bytes.NewReader(tooLong)))
	assert.ErrorIs(t, err, errBadLength)

	_, err = encodeFrame(frame{data: make([]byte, maxFrameData+1)})
	assert.ErrorIs(t, err, errBadLength)
}

func TestProcessBinary_DecodesAndSkipsCorruptFrames(t *testing.T) {
	t.Parallel()

	table, err := signals.NewTable([]signals.Signal{{ID: 0x10, Key: "rpm", Start: 0, Length: 16}})
	require.NoError(t, err)

	var stream bytes.Buffer
	good, _ := encodeFrame(frame{id: 0x10, data: []byte{0xE8, 0x03}})
	bad, _ := encodeFrame(frame{id: 0x10, data: []byte{0x01, 0x00}})
	bad[len(bad)-1] ^= 0x01
	unknown, _ := encodeFrame(frame{id: 0x99, data: []byte{1}})
	stream.Write(good)
	stream.Write(bad)
	stream.Write(unknown)
	stream.Write(good)

	sink := &collectSink{}
	require.NoError(t, processBinary(context.Background(), &stream, table, sink, discard))

	samples := sink.all()
	require.Len(t, samples, 2)
	for _, s := range samples {
		assert.Equal(t, "rpm", s.Series)
		assert.Equal(t, 1000.0, s.Value)
	}
}
