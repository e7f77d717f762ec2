package engine

import (
	"fmt"

	"github.com/sokinpui/codellm/model"
)

var (
	// ErrInvalidFormat is returned for blocks without content or a usable path.
	ErrInvalidFormat = model.ErrInvalidFormat
	// ErrFileNotFound is returned when a target cannot be read while parsing
	// or has disappeared before it is written.
	ErrFileNotFound = model.ErrFileNotFound
	// ErrNoPath is the ErrInvalidFormat case of a block naming no target.
	ErrNoPath = model.ErrNoPath
)

// BlockError is the failure of one candidate block. It never affects the
// other blocks of the same response.
type BlockError struct {
	Index int
	Path  string
	Err   error
}

func (e *BlockError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("block %d (%s): %v", e.Index+1, e.Path, e.Err)
	}
	return fmt.Sprintf("block %d: %v", e.Index+1, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}
