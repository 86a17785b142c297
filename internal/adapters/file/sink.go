package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

var header = []string{"timestamp", "temperature", "humidity", "moisture"}

// Sink implements domain.Sink by appending CSV lines to a local file
type Sink struct {
	path string
}

// NewSink creates a sink for path; the file is created on first connect
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Name returns the file path
func (s *Sink) Name() string {
	return s.path
}

// Connect opens the file in append mode, writing the header if the file is empty
func (s *Sink) Connect(ctx context.Context) (domain.Connection, error) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", domain.ErrSinkUnavailable, s.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: failed to stat %s: %v", domain.ErrSinkUnavailable, s.path, err)
	}

	c := &connection{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := c.write(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return c, nil
}

type connection struct {
	f *os.File
	w *csv.Writer
}

// Append writes one line per reading and flushes it to the file
func (c *connection) Append(ctx context.Context, r *domain.Reading) error {
	return c.write(Record(r))
}

func (c *connection) write(record []string) error {
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("%w: failed to write record: %v", domain.ErrSinkUnavailable, err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("%w: failed to flush record: %v", domain.ErrSinkUnavailable, err)
	}
	return nil
}

func (c *connection) Close() error {
	return c.f.Close()
}

// Record renders a reading as CSV fields
func Record(r *domain.Reading) []string {
	moisture := ""
	if r.HasMoisture() {
		moisture = strconv.Itoa(*r.Moisture)
	}
	return []string{
		r.Timestamp.Format(time.RFC3339),
		strconv.FormatFloat(r.Temperature, 'f', 1, 64),
		strconv.FormatFloat(r.Humidity, 'f', 1, 64),
		moisture,
	}
}
