package influx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	ihttp "github.com/influxdata/influxdb-client-go/v2/api/http"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// Config holds the InfluxDB v2 target
type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	SensorTag   string // value of the "sensor" tag, e.g. "dht22"
}

// Sink implements domain.Sink by writing one point per reading
type Sink struct {
	cfg Config
}

// NewSink creates an InfluxDB sink
func NewSink(cfg Config) *Sink {
	if cfg.Measurement == "" {
		cfg.Measurement = "climate"
	}
	return &Sink{cfg: cfg}
}

// Name returns the bucket
func (s *Sink) Name() string {
	return s.cfg.Bucket
}

// Connect creates a client and checks the server answers
func (s *Sink) Connect(ctx context.Context) (domain.Connection, error) {
	opts := influxdb2.DefaultOptions().SetHTTPRequestTimeout(10)
	client := influxdb2.NewClientWithOptions(s.cfg.URL, s.cfg.Token, opts)

	ok, err := client.Ping(ctx)
	if err != nil || !ok {
		client.Close()
		if err == nil {
			err = errors.New("ping failed")
		}
		return nil, classify("ping", err)
	}

	return &connection{
		client:      client,
		write:       client.WriteAPIBlocking(s.cfg.Org, s.cfg.Bucket),
		measurement: s.cfg.Measurement,
		sensor:      s.cfg.SensorTag,
	}, nil
}

type connection struct {
	client      influxdb2.Client
	write       api.WriteAPIBlocking
	measurement string
	sensor      string
}

// Append writes a point synchronously
func (c *connection) Append(ctx context.Context, r *domain.Reading) error {
	fields := map[string]interface{}{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
	}
	if r.HasMoisture() {
		fields["moisture"] = *r.Moisture
	}

	tags := map[string]string{}
	if c.sensor != "" {
		tags["sensor"] = c.sensor
	}

	p := influxdb2.NewPoint(c.measurement, tags, fields, r.Timestamp)
	if err := c.write.WritePoint(ctx, p); err != nil {
		return classify("write point", err)
	}
	return nil
}

func (c *connection) Close() error {
	c.client.Close()
	return nil
}

func classify(op string, err error) error {
	var herr *ihttp.Error
	if errors.As(err, &herr) {
		if herr.StatusCode == http.StatusUnauthorized || herr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s: %v", domain.ErrSinkAuth, op, err)
		}
		if herr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s: %v", domain.ErrSinkNotFound, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrSinkUnavailable, op, err)
}
