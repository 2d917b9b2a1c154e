package pipeerr

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap("op", KindIO, nil))
}

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap("artifact.Load", KindIO, fs.ErrNotExist)
	require.Error(t, err)

	assert.ErrorIs(t, err, fs.ErrNotExist)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "artifact.Load", pe.Op)
	assert.Equal(t, KindIO, pe.Kind)
	assert.True(t, strings.HasPrefix(pe.Caller, "errors_test.go:"), "caller = %q", pe.Caller)
}

func TestWrap_SameOpNotStacked(t *testing.T) {
	inner := Wrap("transform.Run", KindData, ErrMissingColumn)
	outer := Wrap("transform.Run", KindData, inner)
	assert.Same(t, inner, outer)

	other := Wrap("trainer.Run", KindModel, inner)
	assert.NotSame(t, inner, other)
	assert.ErrorIs(t, other, ErrMissingColumn)
}

func TestErrorf(t *testing.T) {
	err := Errorf("frame.Drop", KindData, "column %q: %w", "math score", ErrMissingColumn)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), `column "math score"`)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindData, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
