package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/codellm/internal/ui"
)

// SourceProvider determines and retrieves the response to apply.
type SourceProvider struct {
	stdin     io.Reader
	piped     func() bool
	clipboard func() (string, error)
}

// New creates a SourceProvider reading from the process stdin and the
// system clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		stdin:     os.Stdin,
		piped:     stdinPiped,
		clipboard: clipboard.ReadAll,
	}
}

// NewWithReader creates a SourceProvider that always reads r.
func NewWithReader(r io.Reader) *SourceProvider {
	return &SourceProvider{
		stdin: r,
		piped: func() bool { return true },
	}
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from stdin (if piped) or the clipboard. Empty
// content is returned as "" with a warning.
func (sp *SourceProvider) GetContent() (string, error) {
	var content string
	if sp.piped() {
		ui.Header("--- Reading from stdin ---")
		data, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		content = string(data)
	} else {
		ui.Header("--- Reading from clipboard ---")
		if sp.clipboard == nil {
			return "", fmt.Errorf("no clipboard available")
		}
		var err error
		content, err = sp.clipboard()
		if err != nil {
			return "", fmt.Errorf("failed to read from clipboard: %w", err)
		}
	}

	if strings.TrimSpace(content) == "" {
		ui.Warning("Input is empty. Nothing to process.")
		return "", nil
	}
	return content, nil
}
