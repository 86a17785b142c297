package domain

import "context"

// Sink establishes connections to a persistence target.
// This is a PORT - adapters (file, sheets, sqlite, influx, mqtt, memory) implement it
type Sink interface {
	// Connect opens a fresh connection. Every call must return a new handle.
	Connect(ctx context.Context) (Connection, error)

	// Name identifies the target in status lines
	Name() string
}

// Connection is an open handle to a sink.
// A connection that failed an Append is never used again.
type Connection interface {
	// Append persists exactly one reading
	Append(ctx context.Context, reading *Reading) error

	// Close releases the handle
	Close() error
}
