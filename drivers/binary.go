package drivers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"scrollchart/signals"
)

const maxFrameData = 64

var (
	errBadLength = errors.New("error data length outside range")
	errBadCRC    = errors.New("error frame checksum does not match")
)

var magicBytes = []byte{0xAA, 0x55}

// frame is one binary record:
// [AA 55][millis:u32 LE][id:u16 BE][len:u8][data:len][crc8:u8]
type frame struct {
	millis uint32
	id     uint16
	data   []byte
}

// processBinary decodes frames from reader until EOF or ctx is cancelled. Corrupt frames are
// logged and skipped, the reader resyncs on the next magic pair.
func processBinary(ctx context.Context, reader io.Reader, decoder signals.Decoder, sink Sink, logger *slog.Logger) error {
	bufferReader := bufio.NewReader(reader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := readBinaryFrame(bufferReader)
		if err != nil {
			if errors.Is(err, errBadLength) || errors.Is(err, errBadCRC) {
				logger.Warn("couldn't read frame", "error", err)
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		pushReadings(sink, decoder.Decode(uint32(f.id), f.data), time.Time{})
	}
}

func readBinaryFrame(bufferReader *bufio.Reader) (frame, error) {
	// resync on magic AA 55
	for {
		firstByte, err := bufferReader.ReadByte()
		if err != nil {
			return frame{}, err
		}
		if firstByte != magicBytes[0] {
			continue
		}
		secondByte, err := bufferReader.ReadByte()
		if err != nil {
			return frame{}, err
		}
		if secondByte == magicBytes[1] {
			break
		}
		if secondByte == magicBytes[0] {
			_ = bufferReader.UnreadByte()
		}
	}

	// header: millis(4 LE) + id(2 BE) + len(1)
	header := make([]byte, 7)
	if _, err := io.ReadFull(bufferReader, header); err != nil {
		return frame{}, err
	}
	dataLength := int(header[6])
	if dataLength > maxFrameData {
		return frame{}, fmt.Errorf("error data length %d: %w", dataLength, errBadLength)
	}

	tail := make([]byte, dataLength+1)
	if _, err := io.ReadFull(bufferReader, tail); err != nil {
		return frame{}, err
	}
	data := tail[:dataLength]
	if frameCRC(header, data) != tail[dataLength] {
		return frame{}, errBadCRC
	}

	return frame{
		millis: uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16 | uint32(header[3])<<24,
		id:     uint16(header[4])<<8 | uint16(header[5]),
		data:   append([]byte(nil), data...),
	}, nil
}

// encodeFrame builds the exact record readBinaryFrame expects.
func encodeFrame(f frame) ([]byte, error) {
	dl := len(f.data)
	if dl > maxFrameData {
		return nil, fmt.Errorf("error data length %d: %w", dl, errBadLength)
	}
	rec := make([]byte, 2+7+dl+1)
	rec[0], rec[1] = magicBytes[0], magicBytes[1]
	rec[2] = byte(f.millis)
	rec[3] = byte(f.millis >> 8)
	rec[4] = byte(f.millis >> 16)
	rec[5] = byte(f.millis >> 24)
	rec[6] = byte(f.id >> 8)
	rec[7] = byte(f.id)
	rec[8] = byte(dl)
	copy(rec[9:9+dl], f.data)
	rec[9+dl] = frameCRC(rec[2:9], f.data)
	return rec, nil
}

// frameCRC covers millis, id and len from the header, then the payload.
func frameCRC(header, data []byte) byte {
	crc := crc8UpdateBuf(0x00, header[:7])
	return crc8UpdateBuf(crc, data)
}

// CRC-8-CCITT helpers (poly 0x07, init 0x00)
func crc8Update(crc, b byte) byte {
	crc ^= b
	for i := 0; i < 8; i++ {
		if crc&0x80 != 0 {
			crc = (crc << 1) ^ 0x07
		} else {
			crc <<= 1
		}
	}
	return crc
}

func crc8UpdateBuf(crc byte, buffer []byte) byte {
	for _, b := range buffer {
		crc = crc8Update(crc, b)
	}
	return crc
}
