package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer(t *testing.T) {
	out, err := PlainRenderer("hello\n\n")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestFormatChoices(t *testing.T) {
	assert.Empty(t, FormatChoices(nil))

	out := FormatChoices([]string{"Yes", "No"})
	assert.Contains(t, out, "[1] Yes")
	assert.Contains(t, out, "[2] No")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")
	assert.Contains(t, buf.String(), "v0.1.0")
}
