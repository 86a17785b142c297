package memory

import (
	"context"
	"sync"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// Sink implements domain.Sink with in-memory storage
// This is handy for development - nothing to set up, nothing survives a restart
type Sink struct {
	mu       sync.RWMutex
	readings []*domain.Reading
	conns    int
}

// NewSink creates an empty in-memory sink
func NewSink() *Sink {
	return &Sink{}
}

// Name identifies the sink
func (s *Sink) Name() string {
	return "memory"
}

// Connect hands out a new connection
func (s *Sink) Connect(ctx context.Context) (domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conns++
	return &connection{sink: s}, nil
}

// stored returns a copy of everything appended so far, in insertion order
func (s *Sink) stored() []*domain.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// connections returns how many connections have been opened
func (s *Sink) connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns
}

type connection struct {
	sink   *Sink
	closed bool
}

// Append stores a reading
func (c *connection) Append(ctx context.Context, r *domain.Reading) error {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()

	if c.closed {
		return domain.ErrSinkUnavailable
	}
	c.sink.readings = append(c.sink.readings, r)
	return nil
}

func (c *connection) Close() error {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.closed = true
	return nil
}
