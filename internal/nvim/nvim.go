package nvim

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/neovim/go-client/nvim"
)

// Notifier tells a running Neovim instance that files changed on disk so
// open buffers are reloaded. A nil *Notifier is valid and does nothing.
type Notifier struct {
	nvim *nvim.Nvim
	log  *slog.Logger
}

// Address picks the socket to dial: the explicit value, then
// $NVIM_LISTEN_ADDRESS, then $NVIM (set inside :terminal).
func Address(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM")
}

// New connects to the instance listening on addr. An empty addr disables
// notification and returns a nil Notifier.
func New(addr string, log *slog.Logger) (*Notifier, error) {
	if addr == "" {
		return nil, nil
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nvim at %s: %w", addr, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{nvim: v, log: log}, nil
}

// Reload asks Neovim to re-check the given files.
func (n *Notifier) Reload(paths []string) error {
	if n == nil || len(paths) == 0 {
		return nil
	}

	b := n.nvim.NewBatch()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		b.Command(checktimeCommand(abs))
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("nvim checktime failed: %w", err)
	}
	n.log.Debug("nvim buffers reloaded", "files", len(paths))
	return nil
}

// Close disconnects from Neovim.
func (n *Notifier) Close() {
	if n == nil || n.nvim == nil {
		return
	}
	if err := n.nvim.Close(); err != nil {
		n.log.Debug("nvim close", "error", err)
	}
}

// checktimeCommand builds an Ex command for path, escaping what
// fnameescape() would.
func checktimeCommand(path string) string {
	var b strings.Builder
	for _, r := range path {
		if strings.ContainsRune(" \t\n*?[{`$\\%#'\"|!<", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return "silent! checktime " + b.String()
}
