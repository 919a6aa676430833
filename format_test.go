package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.Local)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(time.Date(2026, time.March, 15, 10, 30, 0, 0, time.Local), now)
		assert.Equal(t, "Mar 15 10:30", result)
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(time.Date(2020, time.December, 25, 8, 0, 0, 0, time.Local), now)
		assert.Equal(t, "Dec 25  2020", result)
	})
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"File", "ID"},
		[][]string{{"run.fit", "1001"}, {"ride.gpx"}},
		[]columnAlignment{alignLeft, alignRight},
	)

	lines := strings.Split(out, "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "╭"), "rounded style expected, got %q", lines[0])
	assert.Contains(t, out, "run.fit")
	assert.Contains(t, out, "1001")
	assert.Contains(t, out, "ride.gpx")

	// Every line of a box has the same width.
	width := len([]rune(lines[0]))
	for _, l := range lines {
		assert.Len(t, []rune(l), width)
	}
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}, nil))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printJSON(&buf, map[string]int{"created": 1}))
	assert.Equal(t, "{\n  \"created\": 1\n}\n", buf.String())
}
