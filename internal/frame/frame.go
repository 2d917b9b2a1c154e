// Package frame provides the in-memory Dataset used by the pipeline: a table
// of named string columns with per-cell missing markers.
//
// Frames are mutated only by selection and drop, both of which return new
// frames that share column storage with the receiver.
package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

// missingTokens are the cell spellings treated as missing, in addition to
// NULL values coming back from the engine.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"NULL": true,
	"null": true,
}

// IsMissingToken reports whether s spells a missing value.
func IsMissingToken(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// Column is one named column. Valid[i] is false when row i is missing.
type Column struct {
	Name   string
	Values []string
	Valid  []bool
}

// NewColumn builds a column from raw strings, marking missing tokens.
func NewColumn(name string, values ...string) *Column {
	c := &Column{Name: name, Values: make([]string, len(values)), Valid: make([]bool, len(values))}
	for i, v := range values {
		c.Values[i] = v
		c.Valid[i] = !IsMissingToken(v)
	}
	return c
}

// Len returns the number of rows.
func (c *Column) Len() int { return len(c.Values) }

// Missing returns the number of missing cells.
func (c *Column) Missing() int {
	n := 0
	for _, ok := range c.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Float parses row i as a float64.
func (c *Column) Float(i int) (float64, error) {
	if !c.Valid[i] {
		return 0, fmt.Errorf("column %q row %d: missing value", c.Name, i)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Values[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("column %q row %d: %q is not numeric", c.Name, i, c.Values[i])
	}
	return v, nil
}

// Float64s parses every row. Any missing or non-numeric cell is an error.
func (c *Column) Float64s() ([]float64, error) {
	out := make([]float64, c.Len())
	for i := range c.Values {
		v, err := c.Float(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Frame is a rectangular table of columns.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a frame from columns of equal length. Column names must be
// unique.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, pipeerr.Errorf("frame.New", pipeerr.KindData,
				"column %q has %d rows, want %d", c.Name, c.Len(), f.rows)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, pipeerr.Errorf("frame.New", pipeerr.KindData, "duplicate column %q", c.Name)
		}
		f.index[c.Name] = i
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// MustNew is New for literal frames in tests and examples.
func MustNew(cols ...*Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, pipeerr.Errorf("frame.Column", pipeerr.KindData, "column %q: %w", name, pipeerr.ErrMissingColumn)
	}
	return f.cols[i], nil
}

// Columns returns the columns in order.
func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.cols))
	copy(out, f.cols)
	return out
}

// Select returns a frame holding only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	var missing []string
	for _, name := range names {
		i, ok := f.index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols = append(cols, f.cols[i])
	}
	if len(missing) > 0 {
		return nil, pipeerr.Errorf("frame.Select", pipeerr.KindData,
			"columns %q: %w", missing, pipeerr.ErrMissingColumn)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = f.rows
	return out, nil
}

// Drop returns a frame without the named columns. Dropping a column that does
// not exist is an error.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !f.Has(name) {
			return nil, pipeerr.Errorf("frame.Drop", pipeerr.KindData,
				"column %q: %w", name, pipeerr.ErrMissingColumn)
		}
		drop[name] = true
	}
	keep := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if !drop[c.Name] {
			keep = append(keep, c)
		}
	}
	out, err := New(keep...)
	if err != nil {
		return nil, err
	}
	out.rows = f.rows
	return out, nil
}

// Float64s parses a numeric column.
func (f *Frame) Float64s(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	vals, err := c.Float64s()
	if err != nil {
		return nil, pipeerr.Wrap("frame.Float64s", pipeerr.KindData, err)
	}
	return vals, nil
}
