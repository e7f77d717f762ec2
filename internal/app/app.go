package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/sokinpui/codellm/cli"
	"github.com/sokinpui/codellm/engine"
	"github.com/sokinpui/codellm/internal/config"
	"github.com/sokinpui/codellm/internal/contextgather"
	"github.com/sokinpui/codellm/internal/nvim"
	"github.com/sokinpui/codellm/internal/ollama"
	"github.com/sokinpui/codellm/internal/source"
	"github.com/sokinpui/codellm/internal/state"
	"github.com/sokinpui/codellm/internal/ui"
	"github.com/sokinpui/codellm/model"
)

// requestTimeout bounds one generation; local models can be slow.
const requestTimeout = 10 * time.Minute

// Generator produces a model response for a request.
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (string, error)
}

// ContentSource provides the response processed by --apply and --print-diff.
type ContentSource interface {
	GetContent() (string, error)
}

// App orchestrates the entire application logic.
type App struct {
	flags *cli.Config
	cfg   *config.Config
	log   *slog.Logger
	dir   string

	stdout io.Writer
	stderr io.Writer

	engine       *engine.Engine
	stateManager *state.Manager
	notifier     *nvim.Notifier
	gatherer     *contextgather.Gatherer
	generator    Generator
	source       ContentSource
	prompter     Prompter
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// Option replaces one of the App's collaborators.
type Option func(*App)

// WithDir sets the working directory instead of the process one.
func WithDir(dir string) Option {
	return func(a *App) { a.dir = dir }
}

// WithOutput sets where responses and diffs (stdout) and the spinner
// (stderr) are written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) { a.stdout, a.stderr = stdout, stderr }
}

// WithGenerator replaces the Ollama client.
func WithGenerator(g Generator) Option {
	return func(a *App) { a.generator = g }
}

// WithSource replaces the stdin/clipboard source.
func WithSource(s ContentSource) Option {
	return func(a *App) { a.source = s }
}

// WithPrompter replaces the interactive line reader.
func WithPrompter(p Prompter) Option {
	return func(a *App) { a.prompter = p }
}

// New creates a new App instance.
func New(flags *cli.Config, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	a := &App{
		flags:  flags,
		cfg:    cfg,
		log:    log,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.New(slog.DiscardHandler)
	}
	if a.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		a.dir = wd
	}

	var err error
	a.engine, err = engine.New(a.dir,
		engine.WithLogger(a.log),
		engine.WithExtensions(flags.Extensions),
		engine.WithRenderer(a.stdout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	a.dir = a.engine.Root()

	if a.stateManager, err = state.New(state.FindRoot(a.dir)); err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}

	if a.notifier, err = nvim.New(nvim.Address(flags.Nvim), a.log); err != nil {
		a.log.Warn("neovim notification disabled", "error", err)
	}

	if a.generator == nil {
		a.generator = ollama.NewClient(cfg.APIURL, requestTimeout)
	}
	if a.source == nil {
		a.source = source.New()
	}
	a.gatherer = contextgather.New(a.dir, cfg.ContextMaxFileKB, cfg.ContextMaxTotalKB)
	return a, nil
}

// Close releases the terminal and the editor connection.
func (a *App) Close() {
	a.notifier.Close()
	if a.prompter != nil {
		if err := a.prompter.Close(); err != nil {
			a.log.Debug("prompt close", "error", err)
		}
	}
}

// input returns the line reader, putting the terminal in line-editing
// mode on first use.
func (a *App) input() Prompter {
	if a.prompter == nil {
		a.prompter = newLinePrompter()
	}
	return a.prompter
}

// Run executes the main application logic based on parsed flags.
func (a *App) Run(ctx context.Context) (err error) {
	// Centralized panic recovery to provide stack traces for unexpected errors.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.flags.Undo:
		return a.undoLastOperation()
	case a.flags.Redo:
		return a.redoLastOperation()
	case a.flags.PrintDiff:
		return a.printDiffs()
	case a.flags.Apply:
		return a.processContent()
	default:
		return a.chat(ctx)
	}
}

// processContent applies a response read from stdin or the clipboard.
func (a *App) processContent() error {
	content, err := a.source.GetContent()
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}

	res := a.engine.Parse(content)
	if len(res.Diffs) == 0 && len(res.Errors) == 0 {
		ui.Warning("No file edits found. Nothing to do.")
		return nil
	}
	summary := a.review(res)
	ui.PrintUpdateSummary(summary.Created, summary.Modified, summary.Skipped, summary.Failed)
	return nil
}

// printDiffs prints the recomputed unified diff of every edit to stdout.
func (a *App) printDiffs() error {
	content, err := a.source.GetContent()
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}

	res := a.engine.Parse(content)
	for _, be := range res.Errors {
		ui.Warning("Skipping %v", be)
	}
	for _, d := range res.Diffs {
		if d.Outcome == model.OutcomeNoMatch {
			ui.Warning("Skipping %s: removed lines not found.", d.Path)
			continue
		}
		unified, err := a.engine.Unified(d)
		if err != nil {
			ui.Warning("Skipping %s: %v", d.Path, err)
			continue
		}
		fmt.Fprint(a.stdout, unified)
	}
	return nil
}

// review previews every diff of res, applies the accepted ones and records
// them as one history entry.
func (a *App) review(res engine.Result) model.Summary {
	var summary model.Summary
	for _, be := range res.Errors {
		ui.Warning("Skipping %v", be)
		name := be.Path
		if name == "" {
			name = fmt.Sprintf("block %d", be.Index+1)
		}
		summary.Failed = append(summary.Failed, name)
	}
	for _, p := range res.Filtered {
		a.log.Debug("filtered by extension", "path", p)
		summary.Skipped = append(summary.Skipped, p)
	}

	var applied []model.FileDiff
	quit := false
	for i, d := range res.Diffs {
		if quit {
			summary.Skipped = append(summary.Skipped, d.Path)
			continue
		}
		ui.Header("\n--- Suggestion %d ---", i+1)
		if d.Outcome == model.OutcomeNoMatch {
			ui.Warning("%s: the lines to remove were not found, skipping.", d.Path)
			summary.Skipped = append(summary.Skipped, d.Path)
			continue
		}
		if !d.Changed() {
			ui.Info("%s is already up to date.", d.Path)
			summary.Skipped = append(summary.Skipped, d.Path)
			continue
		}

		fmt.Fprint(a.stdout, a.engine.Render(d))
		if !a.flags.Yes {
			switch ask(a.input(), "Apply "+d.Path+"?") {
			case answerReject:
				ui.Warning("Changes rejected.")
				summary.Skipped = append(summary.Skipped, d.Path)
				continue
			case answerQuit:
				quit = true
				summary.Skipped = append(summary.Skipped, d.Path)
				continue
			}
		}

		if err := a.engine.Apply(d); err != nil {
			ui.Error("Failed to write %s: %v", d.Path, err)
			summary.Failed = append(summary.Failed, d.Path)
			continue
		}
		applied = append(applied, d)
		if d.Creates() {
			summary.Created = append(summary.Created, d.Path)
		} else {
			summary.Modified = append(summary.Modified, d.Path)
		}
	}

	if len(applied) == 0 {
		return summary
	}
	if err := a.stateManager.Record(a.dir, applied); err != nil {
		ui.Warning("Could not record history, undo will not be available: %v", err)
	}
	paths := make([]string, len(applied))
	for i, d := range applied {
		paths[i] = filepath.Join(a.dir, d.Path)
	}
	if err := a.notifier.Reload(paths); err != nil {
		a.log.Warn("neovim reload failed", "error", err)
	}
	return summary
}

// undoLastOperation handles the undo logic.
func (a *App) undoLastOperation() error {
	ops := a.stateManager.Peek()
	if len(ops) > 0 {
		ui.Header("--- Reverting last operation ---")
		ui.Info("Found %d file(s) to revert:", len(ops))
		for _, op := range ops {
			ui.Path("- %s (action: %s)", op.Path, op.Action)
		}
	}

	reverted, failed, err := a.stateManager.Undo()
	if errors.Is(err, state.ErrNothingToUndo) {
		ui.Warning("Nothing to undo.")
		return nil
	}
	if err != nil {
		return err
	}
	ui.PrintRevertSummary(reverted, failed)
	a.reloadHistoryPaths(reverted)
	return nil
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() error {
	redone, failed, err := a.stateManager.Redo()
	if errors.Is(err, state.ErrNothingToRedo) {
		ui.Warning("Nothing to redo.")
		return nil
	}
	if err != nil {
		return err
	}
	ui.PrintRedoSummary(redone, failed)
	a.reloadHistoryPaths(redone)
	return nil
}

func (a *App) reloadHistoryPaths(rel []string) {
	paths := make([]string, len(rel))
	for i, p := range rel {
		paths[i] = filepath.Join(a.stateManager.Root(), filepath.FromSlash(p))
	}
	if err := a.notifier.Reload(paths); err != nil {
		a.log.Warn("neovim reload failed", "error", err)
	}
}
