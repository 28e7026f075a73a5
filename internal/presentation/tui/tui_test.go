package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_PlainWriter(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "non-terminal writers get no color codes")
	assert.Equal(t, len(bannerLines)+2, strings.Count(out, "\n"))
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer(40)
	require.NoError(t, err)

	out, err := render("**bold** choice")
	require.NoError(t, err)
	assert.Contains(t, out, "bold")
	assert.Contains(t, out, "choice")
}
