package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Table(t *testing.T) {
	tests := []struct {
		mode Mode
		want []string
	}{
		{ModeText, []string{"MODEL", "Ridge", "0.8800", "┌"}},
		{ModeMarkdown, []string{"| Model |", "| Ridge |", "| --- |"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			var buf bytes.Buffer
			r := NewRenderer(&buf, &buf, tt.mode)
			r.Table([]string{"Model", "Test R²"}, [][]any{{"Ridge", FormatScore(0.88)}})
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestRenderer_Markdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)
	r.Header(2, "Scores")
	r.KeyValue("Run", "abc")
	r.StatusLine("train", "completed", "1.2s")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "## Scores", lines[0])
	assert.Equal(t, "**Run:** abc", lines[1])
	assert.Equal(t, "- **completed** train 1.2s", lines[2])
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	require.NoError(t, r.JSON(map[string]*float64{"ok": NullableFloat(0.5), "nan": NullableFloat(math.NaN())}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 0.5, got["ok"])
	assert.Nil(t, got["nan"])
}

func TestNewRenderer_UnknownMode(t *testing.T) {
	assert.Equal(t, ModeText, NewRenderer(nil, nil, "xml").Mode())
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.1235", FormatScore(0.12345))
	assert.Equal(t, "n/a", FormatScore(math.NaN()))
}

func TestNewRenderer_Auto(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).Mode())
	assert.Equal(t, ModeText, NewRendererWithTTY(&buf, &buf, true, ModeAuto).Mode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&buf, &buf, true, ModeJSON).Mode())
}

func TestRenderer_TextWithoutTTYHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeText)
	r.Header(1, "Model Report")
	r.StatusLine("Ridge", "completed", "test r2 0.8800")
	r.Warn("slow")

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "✓ Ridge test r2 0.8800")
	assert.Contains(t, buf.String(), "warning: slow")
}
