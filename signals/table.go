package signals

import (
	"errors"
	"fmt"
	"sort"

	"go.einride.tech/can"
)

var ErrBadSignal = errors.New("bad signal definition")

// Signal is a bit field inside an up to 8 byte payload. Start follows DBC numbering: the least
// significant bit for little endian signals and the most significant bit for big endian ones.
type Signal struct {
	ID        uint32  `yaml:"id"`
	Key       string  `yaml:"key"`
	Start     uint8   `yaml:"start"`
	Length    uint8   `yaml:"length"`
	BigEndian bool    `yaml:"big_endian"`
	Signed    bool    `yaml:"signed"`
	Scale     float64 `yaml:"scale"`
	Offset    float64 `yaml:"offset"`
}

func (s Signal) decode(data *can.Data) float64 {
	var raw float64
	switch {
	case s.BigEndian && s.Signed:
		raw = float64(data.SignedBitsBigEndian(s.Start, s.Length))
	case s.BigEndian:
		raw = float64(data.UnsignedBitsBigEndian(s.Start, s.Length))
	case s.Signed:
		raw = float64(data.SignedBitsLittleEndian(s.Start, s.Length))
	default:
		raw = float64(data.UnsignedBitsLittleEndian(s.Start, s.Length))
	}
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}
	return raw*scale + s.Offset
}

// Table is a Decoder built from signal definitions.
type Table struct {
	byID map[uint32][]Signal
}

func NewTable(signals []Signal) (*Table, error) {
	t := &Table{byID: make(map[uint32][]Signal)}
	for i, s := range signals {
		if s.Key == "" {
			return nil, fmt.Errorf("signal %d: empty key: %w", i, ErrBadSignal)
		}
		if s.Length == 0 || s.Length > 64 || s.Start > 63 {
			return nil, fmt.Errorf("signal %q start %d length %d: %w", s.Key, s.Start, s.Length, ErrBadSignal)
		}
		if !s.BigEndian && int(s.Start)+int(s.Length) > 64 {
			return nil, fmt.Errorf("signal %q overruns payload: %w", s.Key, ErrBadSignal)
		}
		t.byID[s.ID] = append(t.byID[s.ID], s)
	}
	return t, nil
}

func (t *Table) Decode(id uint32, data []byte) []Reading {
	defs, ok := t.byID[id]
	if !ok {
		return nil
	}
	var payload can.Data
	copy(payload[:], data)
	readings := make([]Reading, 0, len(defs))
	for _, s := range defs {
		readings = append(readings, Reading{s.Key, s.decode(&payload)})
	}
	return readings
}

// DecodeFrame decodes a CAN frame, ignoring remote frames.
func (t *Table) DecodeFrame(frame can.Frame) []Reading {
	if frame.IsRemote {
		return nil
	}
	return t.Decode(frame.ID, frame.Data[:frame.Length])
}

// Keys lists every series key the table can produce, sorted.
func (t *Table) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, defs := range t.byID {
		for _, s := range defs {
			if !seen[s.Key] {
				seen[s.Key] = true
				keys = append(keys, s.Key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
