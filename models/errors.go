package models

import "errors"

var (
	// ErrInvalidArgument is returned for empty series names, non-positive capacities and non-finite samples.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownSeries is returned when an operation names a series the chart does not hold.
	ErrUnknownSeries = errors.New("unknown series")
	// ErrDuplicateSeries is returned by AddSeries when the name is already registered.
	ErrDuplicateSeries = errors.New("duplicate series")
)
