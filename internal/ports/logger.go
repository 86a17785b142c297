package ports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// Options tune the polling loop
type Options struct {
	Interval      time.Duration // sleep after every attempted write
	Cooldown      time.Duration // sleep after an unavailable reading
	WriteBackoff  time.Duration // sleep after a non-auth write failure
	MaxReconnects int           // consecutive failed reconnects tolerated mid-run
}

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in that case
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SensorLogger polls a sensor and appends every valid reading to a sink.
// It owns at most one sink connection at a time.
type SensorLogger struct {
	source SensorSource
	sink   domain.Sink
	opts   Options
	out    io.Writer
	status StatusReporter

	now   func() time.Time
	sleep SleepFunc

	conn              domain.Connection
	reconnectFailures int
}

// NewSensorLogger creates a logger writing status lines to out
func NewSensorLogger(source SensorSource, sink domain.Sink, opts Options, out io.Writer) *SensorLogger {
	if opts.WriteBackoff <= 0 {
		opts.WriteBackoff = opts.Interval
	}
	return &SensorLogger{
		source: source,
		sink:   sink,
		opts:   opts,
		out:    out,
		status: noopStatus{},
		now:    time.Now,
		sleep:  Sleep,
	}
}

// SetStatusReporter registers a reporter for sink connectivity
func (l *SensorLogger) SetStatusReporter(s StatusReporter) {
	if s == nil {
		s = noopStatus{}
	}
	l.status = s
}

// SetClock overrides the time source and sleeper, used by tests
func (l *SensorLogger) SetClock(now func() time.Time, sleep SleepFunc) {
	l.now = now
	l.sleep = sleep
}

// Run connects to the sink and polls until ctx is cancelled.
// It returns nil on cancellation, and an error if the first connect fails
// or the reconnect budget is exhausted.
func (l *SensorLogger) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", l.opts.Interval).
		Str("sink", l.sink.Name()).
		Msg("starting sensor logger")

	if err := l.connect(ctx); err != nil {
		return fmt.Errorf("%w %s: %v", domain.ErrStartupConnect, l.sink.Name(), err)
	}
	defer l.disconnect()

	fmt.Fprintf(l.out, "Logging sensor measurements every %s to %s.\n",
		describeInterval(l.opts.Interval), l.sink.Name())
	fmt.Fprintln(l.out, "Press Ctrl-C to quit.")

	for {
		wait, err := l.pollOnce(ctx)
		if err != nil {
			return err
		}
		if err := l.sleep(ctx, wait); err != nil {
			log.Info().Msg("stopping sensor logger")
			return nil
		}
	}
}

// pollOnce runs a single iteration and returns how long to sleep before the next
func (l *SensorLogger) pollOnce(ctx context.Context) (time.Duration, error) {
	raw, err := l.source.Read(ctx)
	if err != nil {
		log.Debug().Err(err).Dur("cooldown", l.opts.Cooldown).Msg("no sensor reading")
		return l.opts.Cooldown, nil
	}

	reading, err := domain.NewReading(raw, l.now())
	if err != nil {
		log.Warn().Err(err).Dur("cooldown", l.opts.Cooldown).Msg("discarding reading")
		return l.opts.Cooldown, nil
	}

	if l.conn == nil {
		if err := l.connect(ctx); err != nil {
			l.reconnectFailures++
			log.Error().
				Err(err).
				Str("sink", l.sink.Name()).
				Int("attempt", l.reconnectFailures).
				Int("max", l.opts.MaxReconnects).
				Msg("failed to reconnect sink")
			if l.reconnectFailures > l.opts.MaxReconnects {
				return 0, fmt.Errorf("%w after %d attempts: %v", domain.ErrReconnectLimit, l.reconnectFailures, err)
			}
			return l.opts.Interval, nil
		}
		log.Info().Str("sink", l.sink.Name()).Msg("sink reconnected")
	}

	if err := l.conn.Append(ctx, reading); err != nil {
		l.disconnect()
		if ctx.Err() != nil {
			log.Debug().Err(err).Str("sink", l.sink.Name()).Msg("append interrupted")
			return 0, nil
		}
		if errors.Is(err, domain.ErrSinkAuth) {
			log.Error().Err(err).Str("sink", l.sink.Name()).Str("kind", "auth").Msg("append failed, logging in again")
			return l.opts.Interval, nil
		}
		log.Error().Err(err).Str("sink", l.sink.Name()).Str("kind", "transient").Msg("append failed")
		return l.opts.WriteBackoff, nil
	}

	fmt.Fprintln(l.out, reading.Confirmation())
	fmt.Fprintf(l.out, "Measurement logged to %s\n", l.sink.Name())
	return l.opts.Interval, nil
}

func (l *SensorLogger) connect(ctx context.Context) error {
	conn, err := l.sink.Connect(ctx)
	if err != nil {
		return err
	}
	l.conn = conn
	l.reconnectFailures = 0
	l.status.SetSinkConnected(true)
	return nil
}

func (l *SensorLogger) disconnect() {
	if l.conn == nil {
		return
	}
	if err := l.conn.Close(); err != nil {
		log.Warn().Err(err).Str("sink", l.sink.Name()).Msg("failed to close sink connection")
	}
	l.conn = nil
	l.status.SetSinkConnected(false)
}

// describeInterval renders whole seconds as "10 seconds" and anything else as a duration
func describeInterval(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
	return d.String()
}
