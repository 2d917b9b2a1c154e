package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

func sample() *Frame {
	return MustNew(
		NewColumn("gender", "female", "male", ""),
		NewColumn("reading score", "72", "NA", "95"),
		NewColumn("math score", "60", "70", "80"),
	)
}

func TestNewColumn_MissingTokens(t *testing.T) {
	c := NewColumn("x", "1", "", "NA", "NaN", " null ", "0")
	assert.Equal(t, []bool{true, false, false, false, false, true}, c.Valid)
	assert.Equal(t, 4, c.Missing())
}

func TestNew_RowMismatch(t *testing.T) {
	_, err := New(NewColumn("a", "1", "2"), NewColumn("b", "1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "b" has 1 rows, want 2`)
}

func TestNew_DuplicateColumn(t *testing.T) {
	_, err := New(NewColumn("a", "1"), NewColumn("a", "2"))
	require.Error(t, err)
}

func TestFrame_Drop(t *testing.T) {
	f := sample()

	got, err := f.Drop("math score")
	require.NoError(t, err)
	assert.Equal(t, []string{"gender", "reading score"}, got.Names())
	assert.Equal(t, 3, got.NumRows())

	// Receiver is untouched.
	assert.Equal(t, 3, f.NumCols())

	_, err = f.Drop("nope")
	assert.ErrorIs(t, err, pipeerr.ErrMissingColumn)
}

func TestFrame_Select(t *testing.T) {
	f := sample()

	got, err := f.Select("math score", "gender")
	require.NoError(t, err)
	assert.Equal(t, []string{"math score", "gender"}, got.Names())

	_, err = f.Select("gender", "lunch", "writing score")
	require.ErrorIs(t, err, pipeerr.ErrMissingColumn)
	assert.Contains(t, err.Error(), "lunch")
	assert.Contains(t, err.Error(), "writing score")
}

func TestFrame_Float64s(t *testing.T) {
	f := sample()

	got, err := f.Float64s("math score")
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 70, 80}, got)

	_, err = f.Float64s("reading score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing value")

	_, err = f.Float64s("gender")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not numeric")

	_, err = f.Float64s("lunch")
	assert.ErrorIs(t, err, pipeerr.ErrMissingColumn)
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{nil, "", false},
		{"group A", "group A", true},
		{[]byte("x"), "x", true},
		{int64(72), "72", true},
		{int32(-3), "-3", true},
		{float64(72.5), "72.5", true},
		{true, "true", true},
	}
	for _, tt := range tests {
		got, ok := formatCell(tt.in)
		assert.Equal(t, tt.want, got, "formatCell(%v)", tt.in)
		assert.Equal(t, tt.wantOK, ok, "formatCell(%v) ok", tt.in)
	}
}
