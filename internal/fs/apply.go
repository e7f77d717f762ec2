package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/sokinpui/codellm/model"
)

// Applier writes synthesized content below a root directory.
type Applier struct {
	root string
}

// NewApplier creates an Applier confined to dir.
func NewApplier(dir string) (*Applier, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve root directory %q: %w", dir, err)
	}
	return &Applier{root: abs}, nil
}

// Apply writes d.NewContent to d.Path. Missing parent directories are
// created for new files. An existing file that vanished since parsing is
// reported as model.ErrFileNotFound instead of being recreated.
func (a *Applier) Apply(d model.FileDiff) error {
	root, err := os.OpenRoot(a.root)
	if err != nil {
		return fmt.Errorf("could not open root %s: %w", a.root, err)
	}
	defer root.Close()

	perm := iofs.FileMode(0o644)
	if d.IsNewFile {
		if dir := filepath.Dir(d.Path); dir != "." {
			if err := root.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("could not create directory %s: %w", dir, err)
			}
		}
	}
	if !d.Creates() {
		info, err := root.Stat(d.Path)
		switch {
		case err == nil:
			perm = info.Mode().Perm()
		case !errors.Is(err, iofs.ErrNotExist):
			return fmt.Errorf("could not stat %s: %w", d.Path, err)
		case !d.IsNewFile:
			return fmt.Errorf("%w: %s", model.ErrFileNotFound, d.Path)
		}
	}

	if err := root.WriteFile(d.Path, []byte(d.NewContent), perm); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", d.Path, err)
	}
	return nil
}
