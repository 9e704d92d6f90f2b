package models

import "math"

type DataPoint struct {
	x float64
	y float64
}

func NewDataPoint(x, y float64) DataPoint {
	return DataPoint{x, y}
}

func (p DataPoint) X() float64 {
	return p.x
}

func (p DataPoint) Y() float64 {
	return p.y
}

func (p DataPoint) finite() bool {
	return isFinite(p.x) && isFinite(p.y)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
