package model

import "errors"

var (
	// ErrInvalidPeriod is returned when a trend period
	// string does not match <positive integer><H|D|M|Y>
	ErrInvalidPeriod = errors.New("invalid period format, expected <number><H|D|M|Y>")

	// ErrPeriodBelowMinimum is returned for hour periods shorter than 12H
	ErrPeriodBelowMinimum = errors.New("hour period below minimum of 12H")

	// ErrInsufficientHistory is returned when fewer than two
	// observations exist inside the requested trend window
	ErrInsufficientHistory = errors.New("insufficient historical data to calculate trend")

	// ErrRefreshFailed wraps aggregation failures during a refresh cycle
	ErrRefreshFailed = errors.New("rate refresh failed")
)
