// Package adapter provides the tabular engine adapters LeapML uses to read
// and write delimited data files.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds the configuration for opening an engine connection.
type Config struct {
	// Type selects the registered adapter (e.g., "duckdb").
	Type string

	// Path is the database file. Empty or ":memory:" means in-memory.
	Path string

	// Options contains additional driver-specific options
	Options map[string]string

	// Params holds adapter-specific settings, decoded by each adapter.
	Params map[string]any
}

// Column describes one column of a loaded table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata holds metadata about a loaded table.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// ColumnNames returns the column names in ordinal order.
func (m *Metadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter is the contract every tabular engine implements.
type Adapter interface {
	// Connect opens the engine using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves column and row-count metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// LoadCSV loads a CSV file with a header row into table, replacing any
	// existing table of that name. The schema is inferred.
	LoadCSV(ctx context.Context, table string, filePath string) error

	// ExportCSV writes the result of query to filePath with a header row.
	ExportCSV(ctx context.Context, query string, filePath string) error
}
