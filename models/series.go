package models

type Series struct {
	// key is the identifier and doubles as the name shown in legends.
	key string
	// colour is a hex colour with the # prefix, only renderers care about it.
	colour string
	// unit of the values in points, taken from the metric table.
	unit string
	// label is the axis title for this series, taken from the metric table.
	label string
	// canonical is the metric table's y range, nil for metrics the table doesn't know.
	canonical *Range
	// dirty lets us know if this series has been modified since the last TakeDirty.
	dirty bool
	// points holds the buffered samples, oldest first.
	points *buffer
}

func newSeries(key, colour string, capacity int) *Series {
	return &Series{
		key:    key,
		colour: colour,
		points: newBuffer(capacity),
		dirty:  true,
	}
}

func (s *Series) Key() string {
	return s.key
}

func (s *Series) Colour() string {
	return s.colour
}

func (s *Series) Unit() string {
	return s.unit
}

func (s *Series) Label() string {
	return s.label
}

func (s *Series) Len() int {
	return s.points.len()
}

// Points returns a copy of the buffered samples, oldest first.
func (s *Series) Points() []DataPoint {
	return s.points.slice()
}

func (s *Series) Latest() (DataPoint, bool) {
	if s.points.len() == 0 {
		return DataPoint{}, false
	}
	return s.points.back(), true
}

func (s *Series) Dirty() bool {
	return s.dirty
}

// evictOlderThan drops points from the front while they sit at or left of cutoff.
func (s *Series) evictOlderThan(cutoff float64) {
	for s.points.len() > 0 && s.points.front().x <= cutoff {
		s.points.popFront()
	}
}
