package models

import "math"

const (
	// MinimumSpan is the smallest height (and width) an auto-scaled axis may have.
	MinimumSpan = 1.0
	// YPadding is the fraction of the value span added above and below auto-scaled data.
	YPadding = 0.1
)

// Range is the visible rectangle of a chart in data coordinates.
type Range struct {
	XMin float64 `yaml:"x_min" json:"xMin"`
	XMax float64 `yaml:"x_max" json:"xMax"`
	YMin float64 `yaml:"y_min" json:"yMin"`
	YMax float64 `yaml:"y_max" json:"yMax"`
}

// DefaultRange is what an empty series reports.
var DefaultRange = Range{0, 1, 0, 1}

func (r Range) Width() float64 {
	return r.XMax - r.XMin
}

func (r Range) Height() float64 {
	return r.YMax - r.YMin
}

// Union returns the smallest range containing both r and o.
func (r Range) Union(o Range) Range {
	return Range{
		XMin: math.Min(r.XMin, o.XMin),
		XMax: math.Max(r.XMax, o.XMax),
		YMin: math.Min(r.YMin, o.YMin),
		YMax: math.Max(r.YMax, o.YMax),
	}
}

func (r Range) valid() bool {
	return isFinite(r.XMin) && isFinite(r.XMax) && isFinite(r.YMin) && isFinite(r.YMax) &&
		r.XMax > r.XMin && r.YMax > r.YMin
}

// padSpan widens [lo, hi] by pad on both sides and then to at least MinimumSpan around its centre.
// With nonNegative the lower bound never drops below zero.
func padSpan(lo, hi, pad float64, nonNegative bool) (float64, float64) {
	lo, hi = lo-pad, hi+pad
	if nonNegative && lo < 0 {
		lo = 0
	}
	if hi-lo >= MinimumSpan {
		return lo, hi
	}
	lo = (lo+hi)/2 - MinimumSpan/2
	if nonNegative && lo < 0 {
		lo = 0
	}
	return lo, lo + MinimumSpan
}

func extent(points []DataPoint, value func(DataPoint) float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		v := value(p)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
