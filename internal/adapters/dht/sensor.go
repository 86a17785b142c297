package dht

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	godht "github.com/MichaelS11/go-dht"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// driver is the subset of *godht.DHT we use
type driver interface {
	ReadRetry(maxRetries int) (humidity float64, temperature float64, err error)
}

// Sensor reads a DHT11 or DHT22 on a GPIO pin
// This implements the ports.SensorSource interface
type Sensor struct {
	dev     driver
	retries int
}

// PinName turns "4" into the periph name "GPIO4"; names are passed through
func PinName(pin string) string {
	if _, err := strconv.Atoi(pin); err == nil {
		return "GPIO" + pin
	}
	return pin
}

// NewSensor initialises the host and opens the sensor.
// kind is "DHT11" or "DHT22"; retries is the attempt budget per read.
func NewSensor(kind, pin string, retries int) (*Sensor, error) {
	if err := godht.HostInit(); err != nil {
		return nil, fmt.Errorf("failed to initialise GPIO host: %w", err)
	}

	// go-dht treats anything but "dht11" as a DHT22
	dev, err := godht.NewDHT(PinName(pin), godht.Celsius, strings.ToLower(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s on %s: %w", kind, pin, err)
	}

	return newSensor(dev, retries), nil
}

func newSensor(dev driver, retries int) *Sensor {
	if retries < 1 {
		retries = 1
	}
	return &Sensor{dev: dev, retries: retries}
}

// Read samples the sensor, retrying inside the driver.
// Exhausting the retry budget yields domain.ErrSensorUnavailable.
func (s *Sensor) Read(ctx context.Context) (domain.RawReading, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawReading{}, err
	}

	humidity, temperature, err := s.dev.ReadRetry(s.retries)
	if err != nil {
		return domain.RawReading{}, fmt.Errorf("%w: %v", domain.ErrSensorUnavailable, err)
	}

	return domain.RawReading{Temperature: temperature, Humidity: humidity}, nil
}

// Close is a no-op; go-dht holds no handle beyond the pin
func (s *Sensor) Close() error {
	return nil
}
