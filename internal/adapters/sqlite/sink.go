package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// Timestamps are stored in UTC
const timestampLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS climate_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	temperature REAL NOT NULL,
	humidity REAL NOT NULL,
	moisture INTEGER,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_climate_timestamp ON climate_readings(timestamp);
`

// Sink implements domain.Sink with SQLite
type Sink struct {
	dbPath string
}

// NewSink creates a SQLite-backed sink; the database is opened on connect
func NewSink(dbPath string) *Sink {
	return &Sink{dbPath: dbPath}
}

// Name returns the database path
func (s *Sink) Name() string {
	return s.dbPath
}

// Connect opens the database and creates the schema if needed
func (s *Sink) Connect(ctx context.Context) (domain.Connection, error) {
	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", domain.ErrSinkUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create schema: %v", domain.ErrSinkUnavailable, err)
	}

	return &Connection{db: db}, nil
}

// Connection is an open SQLite database
type Connection struct {
	db *sql.DB
}

// Append inserts a reading
func (c *Connection) Append(ctx context.Context, r *domain.Reading) error {
	query := `INSERT INTO climate_readings (temperature, humidity, moisture, timestamp) VALUES (?, ?, ?, ?)`

	var moisture sql.NullInt64
	if r.HasMoisture() {
		moisture = sql.NullInt64{Int64: int64(*r.Moisture), Valid: true}
	}

	_, err := c.db.ExecContext(ctx, query, r.Temperature, r.Humidity, moisture, r.Timestamp.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("%w: failed to insert reading: %v", domain.ErrSinkUnavailable, err)
	}
	return nil
}

// count returns the number of stored readings
func (c *Connection) count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM climate_readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.db.Close()
}
