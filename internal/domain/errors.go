package domain

import "errors"

var (
	// ErrSensorUnavailable indicates the sensor could not be sampled in time
	ErrSensorUnavailable = errors.New("sensor unavailable")

	// ErrInvalidReading indicates a sample outside the sensor's physical range
	ErrInvalidReading = errors.New("reading out of range")

	// ErrSinkAuth indicates the sink rejected our credentials
	ErrSinkAuth = errors.New("sink authentication failed")

	// ErrSinkUnavailable indicates a transient network or IO failure
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrSinkNotFound indicates the named sink target does not exist
	ErrSinkNotFound = errors.New("sink target not found")

	// ErrStartupConnect indicates the first sink connect failed
	ErrStartupConnect = errors.New("could not open sink at startup")

	// ErrReconnectLimit indicates too many consecutive reconnects failed
	ErrReconnectLimit = errors.New("sink reconnect limit reached")
)
