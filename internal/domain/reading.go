package domain

import (
	"fmt"
	"math"
	"time"
)

// Physical limits of the DHT family and the moisture scale.
const (
	MinTemperature = -40.0
	MaxTemperature = 80.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
	MinMoisture    = 0
	MaxMoisture    = 100
)

// RawReading is a sample as it comes off the hardware, before it is stamped
type RawReading struct {
	Temperature float64 // °C
	Humidity    float64 // %RH
	Moisture    *int    // percent, nil when no moisture sensor is wired
}

// Reading is one timestamped climate sample.
// It is built once per loop iteration and never modified afterwards.
type Reading struct {
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
	Moisture    *int
}

// NewReading validates a raw sample and stamps it with ts
func NewReading(raw RawReading, ts time.Time) (*Reading, error) {
	if math.IsNaN(raw.Temperature) || raw.Temperature < MinTemperature || raw.Temperature > MaxTemperature {
		return nil, fmt.Errorf("%w: temperature %v", ErrInvalidReading, raw.Temperature)
	}
	if math.IsNaN(raw.Humidity) || raw.Humidity < MinHumidity || raw.Humidity > MaxHumidity {
		return nil, fmt.Errorf("%w: humidity %v", ErrInvalidReading, raw.Humidity)
	}

	var moisture *int
	if raw.Moisture != nil {
		m := *raw.Moisture
		if m < MinMoisture || m > MaxMoisture {
			return nil, fmt.Errorf("%w: moisture %d", ErrInvalidReading, m)
		}
		moisture = &m
	}

	return &Reading{
		Timestamp:   ts,
		Temperature: raw.Temperature,
		Humidity:    raw.Humidity,
		Moisture:    moisture,
	}, nil
}

// HasMoisture reports whether the reading carries a soil moisture value
func (r *Reading) HasMoisture() bool {
	return r.Moisture != nil
}

// Confirmation is the operator-facing line printed for a reading
func (r *Reading) Confirmation() string {
	line := fmt.Sprintf("%s - Temperature: %.1f C; Humidity: %.1f %%",
		r.Timestamp.Format("2006-01-02 15:04:05"), r.Temperature, r.Humidity)
	if r.HasMoisture() {
		line += fmt.Sprintf("; Moisture: %d %%", *r.Moisture)
	}
	return line
}
