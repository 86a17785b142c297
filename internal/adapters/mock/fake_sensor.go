package mock

import (
	"context"
	"math/rand"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// FakeSensor simulates a DHT climate sensor for development
// This implements the ports.SensorSource interface
type FakeSensor struct {
	baseTemp     float64
	baseHumidity float64
	variation    float64
	dropRate     float64
	rng          *rand.Rand
}

// NewFakeSensor creates a sensor hovering around baseTemp °C and baseHumidity %RH.
// variation: +/- range applied to both values
// dropRate: probability (0-1) that a read yields nothing, like a missed DHT timing window
func NewFakeSensor(baseTemp, baseHumidity, variation, dropRate float64, seed int64) *FakeSensor {
	return &FakeSensor{
		baseTemp:     baseTemp,
		baseHumidity: baseHumidity,
		variation:    variation,
		dropRate:     dropRate,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Read returns a simulated reading
func (s *FakeSensor) Read(ctx context.Context) (domain.RawReading, error) {
	if s.rng.Float64() < s.dropRate {
		return domain.RawReading{}, domain.ErrSensorUnavailable
	}

	temp := s.baseTemp + s.jitter()
	humidity := s.baseHumidity + s.jitter()

	// Clamp to what a DHT22 can report
	if humidity < domain.MinHumidity {
		humidity = domain.MinHumidity
	}
	if humidity > domain.MaxHumidity {
		humidity = domain.MaxHumidity
	}

	return domain.RawReading{Temperature: temp, Humidity: humidity}, nil
}

func (s *FakeSensor) jitter() float64 {
	return (s.rng.Float64() - 0.5) * 2 * s.variation
}

// Close is a no-op for fake sensor
func (s *FakeSensor) Close() error {
	return nil
}
