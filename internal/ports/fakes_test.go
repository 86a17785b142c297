package ports

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// scriptedSource yields a fixed sequence of samples; nil entries mean
// "no reading". Once the script runs out it cancels the run.
type scriptedSource struct {
	script []*domain.RawReading
	cancel context.CancelFunc
	reads  int
	closed bool
}

func sample(temp, hum float64) *domain.RawReading {
	return &domain.RawReading{Temperature: temp, Humidity: hum}
}

func (s *scriptedSource) Read(ctx context.Context) (domain.RawReading, error) {
	s.reads++
	if s.reads > len(s.script) {
		s.cancel()
		return domain.RawReading{}, domain.ErrSensorUnavailable
	}
	r := s.script[s.reads-1]
	if r == nil {
		return domain.RawReading{}, domain.ErrSensorUnavailable
	}
	return *r, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

// appended records which connection persisted which reading
type appended struct {
	connID  int
	reading *domain.Reading
}

// stubSink hands out numbered connections. connectErrs and appendErrs are
// consumed in order, one per call; a nil entry (or running out) means success.
type stubSink struct {
	mu          sync.Mutex
	connectErrs []error
	appendErrs  []error
	connects    int
	nextID      int
	rows        []appended
	appendedOn  []int
	closedIDs   []int
	onAppend    func()
}

func (s *stubSink) Name() string { return "stub" }

func (s *stubSink) Connect(ctx context.Context) (domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connects++
	if len(s.connectErrs) > 0 {
		err := s.connectErrs[0]
		s.connectErrs = s.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	s.nextID++
	return &stubConn{sink: s, id: s.nextID}, nil
}

type stubConn struct {
	sink   *stubSink
	id     int
	closed bool
	failed bool
}

func (c *stubConn) Append(ctx context.Context, r *domain.Reading) error {
	s := c.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendedOn = append(s.appendedOn, c.id)
	if s.onAppend != nil {
		s.onAppend()
	}
	if c.closed || c.failed {
		return errors.New("append on a dead connection")
	}
	if len(s.appendErrs) > 0 {
		err := s.appendErrs[0]
		s.appendErrs = s.appendErrs[1:]
		if err != nil {
			c.failed = true
			return err
		}
	}
	s.rows = append(s.rows, appended{connID: c.id, reading: r})
	return nil
}

func (c *stubConn) Close() error {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()

	c.closed = true
	c.sink.closedIDs = append(c.sink.closedIDs, c.id)
	return nil
}

// sleepRecorder never sleeps; it records every requested duration
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

type statusRecorder struct {
	states []bool
}

func (s *statusRecorder) SetSinkConnected(connected bool) {
	s.states = append(s.states, connected)
}

type fixedMoisture struct {
	value  int
	err    error
	closed bool
}

func (m *fixedMoisture) ReadMoisture(ctx context.Context) (int, error) {
	return m.value, m.err
}

func (m *fixedMoisture) Close() error {
	m.closed = true
	return nil
}
