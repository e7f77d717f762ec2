package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat marks a block that has no content or no derivable path.
	ErrInvalidFormat = errors.New("invalid diff format")
	// ErrFileNotFound marks a target that could not be read at parse time or
	// vanished before it was written.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoPath marks a block from which no target path can be derived. It
	// wraps ErrInvalidFormat.
	ErrNoPath = fmt.Errorf("%w: no file path found", ErrInvalidFormat)
)
