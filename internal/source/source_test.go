package source

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/codellm/internal/ui"
)

func quiet(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	ui.SetOutput(&buf, termenv.Ascii)
	t.Cleanup(func() { ui.SetOutput(os.Stderr, termenv.ColorProfile()) })
	return &buf
}

func TestGetContent_Reader(t *testing.T) {
	buf := quiet(t)
	got, err := NewWithReader(strings.NewReader("```go\nx\n```\n")).GetContent()
	require.NoError(t, err)
	assert.Equal(t, "```go\nx\n```\n", got)
	assert.Contains(t, buf.String(), "Reading from stdin")
}

func TestGetContent_Empty(t *testing.T) {
	buf := quiet(t)
	got, err := NewWithReader(strings.NewReader(" \n\t")).GetContent()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "Nothing to process")
}

func TestGetContent_Clipboard(t *testing.T) {
	quiet(t)
	sp := &SourceProvider{
		piped:     func() bool { return false },
		clipboard: func() (string, error) { return "from clipboard", nil },
	}
	got, err := sp.GetContent()
	require.NoError(t, err)
	assert.Equal(t, "from clipboard", got)

	sp.clipboard = func() (string, error) { return "", errors.New("no xclip") }
	_, err = sp.GetContent()
	assert.ErrorContains(t, err, "failed to read from clipboard: no xclip")
}
