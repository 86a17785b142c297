package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// fakeGoogle serves the handful of Drive and Sheets endpoints the sink uses
type fakeGoogle struct {
	mu         sync.Mutex
	appendCode int
	filesQuery string
	appended   [][]interface{}
	appendPath string
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/files":
		f.filesQuery = r.URL.Query().Get("q")
		if strings.Contains(f.filesQuery, "missing") {
			w.Write([]byte(`{"files": []}`))
			return
		}
		w.Write([]byte(`{"files": [{"id": "sheet-123", "name": "dht22sensor"}]}`))

	case r.URL.Path == "/v4/spreadsheets/sheet-123":
		w.Write([]byte(`{"sheets": [{"properties": {"sheetId": 0, "title": "Sheet1"}}]}`))

	case strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-123/values/") && strings.HasSuffix(r.URL.Path, ":append"):
		f.appendPath = r.URL.Path
		if f.appendCode != 0 {
			w.WriteHeader(f.appendCode)
			w.Write([]byte(`{"error": {"code": 401, "message": "token expired"}}`))
			return
		}
		var vr struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, vr.Values...)
		w.Write([]byte(`{"spreadsheetId": "sheet-123"}`))

	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": 404, "message": "not found"}}`))
	}
}

func newTestSink(t *testing.T, cfg Config) (*Sink, *fakeGoogle) {
	t.Helper()
	fake := &fakeGoogle{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return NewSink(cfg,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	), fake
}

func newReading(t *testing.T, moisture *int) *domain.Reading {
	t.Helper()
	r, err := domain.NewReading(domain.RawReading{Temperature: 22.5, Humidity: 41.3, Moisture: moisture},
		time.Date(2024, 3, 1, 8, 5, 9, 0, time.Local))
	if err != nil {
		t.Fatalf("unexpected error creating reading: %v", err)
	}
	return r
}

func TestConnectByName_Append(t *testing.T) {
	sink, fake := newTestSink(t, Config{SpreadsheetName: "dht22sensor"})
	ctx := context.Background()

	conn, err := sink.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	m := 40
	if err := conn.Append(ctx, newReading(t, &m)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if !strings.Contains(fake.filesQuery, "name = 'dht22sensor'") {
		t.Errorf("unexpected drive query %q", fake.filesQuery)
	}
	if !strings.Contains(fake.appendPath, "'Sheet1'!A1") {
		t.Errorf("unexpected append range %q", fake.appendPath)
	}
	if len(fake.appended) != 1 {
		t.Fatalf("expected 1 row, got %d", len(fake.appended))
	}
	row := fake.appended[0]
	if len(row) != 4 || row[0] != "01/03/2024 08:05:09" || row[1] != 22.5 || row[2] != 41.3 || row[3] != 40.0 {
		t.Errorf("unexpected row %v", row)
	}
}

func TestConnect_NotFound(t *testing.T) {
	sink, _ := newTestSink(t, Config{SpreadsheetName: "missing"})

	_, err := sink.Connect(context.Background())
	if !errors.Is(err, domain.ErrSinkNotFound) {
		t.Errorf("expected ErrSinkNotFound, got %v", err)
	}
}

func TestConnect_BadCredentialsFile(t *testing.T) {
	sink, _ := newTestSink(t, Config{CredentialsFile: "/nonexistent/key.json", SpreadsheetID: "sheet-123"})

	_, err := sink.Connect(context.Background())
	if !errors.Is(err, domain.ErrSinkAuth) {
		t.Errorf("expected ErrSinkAuth, got %v", err)
	}
}

func TestAppend_ExpiredToken(t *testing.T) {
	sink, fake := newTestSink(t, Config{SpreadsheetID: "sheet-123"})
	ctx := context.Background()

	conn, err := sink.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fake.mu.Lock()
	fake.appendCode = http.StatusUnauthorized
	fake.mu.Unlock()

	if err := conn.Append(ctx, newReading(t, nil)); !errors.Is(err, domain.ErrSinkAuth) {
		t.Errorf("expected ErrSinkAuth, got %v", err)
	}
}

func TestRow_WithoutMoisture(t *testing.T) {
	row := Row(newReading(t, nil))
	if len(row) != 3 {
		t.Errorf("expected 3 cells, got %v", row)
	}
}

func TestName(t *testing.T) {
	if got := NewSink(Config{SpreadsheetID: "abc"}).Name(); got != "abc" {
		t.Errorf("Name() = %q, want abc", got)
	}
	if got := NewSink(Config{SpreadsheetName: "dht22sensor", SpreadsheetID: "abc"}).Name(); got != "dht22sensor" {
		t.Errorf("Name() = %q, want dht22sensor", got)
	}
}
