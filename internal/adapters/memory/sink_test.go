package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

func TestAppend(t *testing.T) {
	sink := NewSink()
	ctx := context.Background()

	conn, err := sink.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	for _, temp := range []float64{20, 21} {
		r, _ := domain.NewReading(domain.RawReading{Temperature: temp, Humidity: 50}, time.Now())
		if err := conn.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got := sink.stored()
	if len(got) != 2 || got[0].Temperature != 20 || got[1].Temperature != 21 {
		t.Errorf("unexpected readings: %+v", got)
	}
}

func TestAppend_ClosedConnection(t *testing.T) {
	sink := NewSink()
	ctx := context.Background()

	conn, _ := sink.Connect(ctx)
	conn.Close()

	r, _ := domain.NewReading(domain.RawReading{Temperature: 20, Humidity: 50}, time.Now())
	if err := conn.Append(ctx, r); !errors.Is(err, domain.ErrSinkUnavailable) {
		t.Errorf("expected ErrSinkUnavailable, got %v", err)
	}
	if len(sink.stored()) != 0 {
		t.Error("closed connection stored a reading")
	}
	if sink.connections() != 1 {
		t.Errorf("expected 1 connection, got %d", sink.connections())
	}
}
