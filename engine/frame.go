package engine

import (
	"scrollchart/models"
)

// Frame is an immutable copy of one chart, safe to hand to any goroutine.
type Frame struct {
	ChartKey   string
	Title      string
	AutoScroll bool
	// Range is the union of every series range, for renderers drawing shared axes.
	Range  models.Range
	Series []SeriesFrame
	// Changed lists the series that changed since the previous frame of this chart.
	Changed []string
}

type SeriesFrame struct {
	Key    string
	Colour string
	Unit   string
	Label  string
	Points []models.DataPoint
	Range  models.Range
	Latest models.DataPoint
	// HasLatest is false for an empty series.
	HasLatest bool
}

// Find returns the series with key.
func (f *Frame) Find(key string) (SeriesFrame, bool) {
	for _, s := range f.Series {
		if s.Key == key {
			return s, true
		}
	}
	return SeriesFrame{}, false
}

func newFrame(chart *models.Chart, changed []string) *Frame {
	frame := &Frame{
		ChartKey:   chart.Key(),
		Title:      chart.Title(),
		AutoScroll: chart.AutoScroll(),
		Range:      chart.Range(),
		Changed:    changed,
	}
	for _, name := range chart.SeriesNames() {
		s, _ := chart.Series(name)
		r, _ := chart.VisibleRange(name)
		latest, ok := s.Latest()
		frame.Series = append(frame.Series, SeriesFrame{
			Key:       name,
			Colour:    s.Colour(),
			Unit:      s.Unit(),
			Label:     s.Label(),
			Points:    s.Points(),
			Range:     r,
			Latest:    latest,
			HasLatest: ok,
		})
	}
	return frame
}
