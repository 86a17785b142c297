package ports

import (
	"context"
	"fmt"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// SensorSource defines how to sample temperature and humidity
// This is a PORT - adapters (DHT, Mock) will implement it
type SensorSource interface {
	// Read returns one raw sample, or domain.ErrSensorUnavailable when
	// the hardware could not be sampled within its attempt budget
	Read(ctx context.Context) (domain.RawReading, error)

	// Close releases any resources
	Close() error
}

// MoistureSensor reads soil moisture as a 0-100 percentage
type MoistureSensor interface {
	ReadMoisture(ctx context.Context) (int, error)
	Close() error
}

// withMoisture decorates a climate source with a moisture channel
type withMoisture struct {
	SensorSource
	moisture MoistureSensor
}

// WithMoisture returns a source whose readings carry a moisture value.
// A failed moisture read makes the whole sample unavailable.
func WithMoisture(source SensorSource, moisture MoistureSensor) SensorSource {
	return &withMoisture{SensorSource: source, moisture: moisture}
}

func (s *withMoisture) Read(ctx context.Context) (domain.RawReading, error) {
	raw, err := s.SensorSource.Read(ctx)
	if err != nil {
		return raw, err
	}

	m, err := s.moisture.ReadMoisture(ctx)
	if err != nil {
		return domain.RawReading{}, fmt.Errorf("%w: moisture: %v", domain.ErrSensorUnavailable, err)
	}
	raw.Moisture = &m
	return raw, nil
}

func (s *withMoisture) Close() error {
	err := s.SensorSource.Close()
	if merr := s.moisture.Close(); err == nil {
		err = merr
	}
	return err
}
