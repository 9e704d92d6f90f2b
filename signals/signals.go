// Package signals turns raw frame payloads into named readings. The CAN and binary serial drivers
// share it, so a frame ID means the same thing whichever wire it arrived on.
package signals

import "go.einride.tech/can"

// Reading is one decoded value destined for the series called Key.
type Reading struct {
	Key   string
	Value float64
}

// Decoder maps a frame ID and payload to zero or more readings.
type Decoder interface {
	Decode(id uint32, data []byte) []Reading
}

// FrameDecoder decodes whole CAN frames, skipping the ones that carry no data.
type FrameDecoder interface {
	DecodeFrame(frame can.Frame) []Reading
}
