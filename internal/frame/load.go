package frame

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapml/internal/adapter"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// Load reads a delimited file with a header row into a frame. The file is
// staged in table on the given adapter, which is left holding it.
func Load(ctx context.Context, a adapter.Adapter, table, path string) (*Frame, error) {
	if err := a.LoadCSV(ctx, table, path); err != nil {
		return nil, pipeerr.Wrap("frame.Load", pipeerr.KindIO, err)
	}
	f, err := FromTable(ctx, a, table)
	if err != nil {
		return nil, pipeerr.Wrap("frame.Load", pipeerr.KindIO, err)
	}
	return f, nil
}

// FromTable reads every row of a loaded table into a frame.
func FromTable(ctx context.Context, a adapter.Adapter, table string) (*Frame, error) {
	rows, err := a.Query(ctx, "SELECT * FROM "+adapter.QuoteIdent(table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	cols := make([]*Column, len(names))
	for i, name := range names {
		cols[i] = &Column{Name: name}
	}

	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			s, ok := formatCell(v)
			if ok && IsMissingToken(s) {
				ok = false
			}
			cols[i].Values = append(cols[i].Values, s)
			cols[i].Valid = append(cols[i].Valid, ok)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return New(cols...)
}

// formatCell renders a scanned engine value as a cell string. ok is false for
// NULL.
func formatCell(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int:
		return strconv.Itoa(x), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case time.Time:
		return x.Format(time.RFC3339), true
	default:
		return fmt.Sprint(x), true
	}
}
