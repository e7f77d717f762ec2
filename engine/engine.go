// Package engine finds file edits in free-form model responses, turns them
// into complete file contents and writes them to disk.
//
// A response goes through four steps: candidate blocks are extracted,
// classified, given a safe target path and synthesized into a FileDiff.
// Rendering and applying are separate calls so a caller can ask the user
// in between.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/codellm/internal/fs"
	"github.com/sokinpui/codellm/internal/parser"
	"github.com/sokinpui/codellm/internal/patcher"
	"github.com/sokinpui/codellm/internal/render"
	"github.com/sokinpui/codellm/model"
)

// Result is everything found in one response.
type Result struct {
	// Diffs are in block order.
	Diffs []model.FileDiff
	// Errors holds one entry per accepted block that could not be parsed.
	Errors []*BlockError
	// Rejected counts blocks that were not file edits.
	Rejected int
	// Filtered lists target paths skipped by the extension filter.
	Filtered []string
}

// Applicable returns the diffs that located their change and modify something.
func (r Result) Applicable() []model.FileDiff {
	var out []model.FileDiff
	for _, d := range r.Diffs {
		if d.Outcome == model.OutcomeApplied && d.Changed() {
			out = append(out, d)
		}
	}
	return out
}

// Engine owns the compiled patterns and every processing step. It is not
// safe for concurrent use.
type Engine struct {
	log        *slog.Logger
	extensions []string
	renderOut  io.Writer
	renderOpts []render.Option

	patterns   *parser.Patterns
	extractor  *parser.Extractor
	classifier *parser.Classifier
	resolver   *fs.PathResolver
	synth      *patcher.Synthesizer
	applier    *fs.Applier
	renderer   *render.Renderer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by all steps.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithExtensions keeps only diffs whose target has one of exts. The
// leading dot is optional.
func WithExtensions(exts []string) Option {
	return func(e *Engine) {
		for _, ext := range exts {
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			e.extensions = append(e.extensions, ext)
		}
	}
}

// WithRenderer sets the writer whose terminal decides preview colors, and
// extra renderer options.
func WithRenderer(w io.Writer, opts ...render.Option) Option {
	return func(e *Engine) {
		e.renderOut = w
		e.renderOpts = opts
	}
}

// New creates an Engine that reads and writes files below root.
func New(root string, opts ...Option) (*Engine, error) {
	e := &Engine{renderOut: os.Stdout}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}

	e.patterns = parser.NewPatterns()
	e.extractor = parser.NewExtractor(e.patterns, e.log)
	e.classifier = parser.NewClassifier(e.patterns)
	e.synth = patcher.New(e.patterns, e.log)
	e.renderer = render.New(e.renderOut, e.renderOpts...)

	var err error
	if e.resolver, err = fs.NewPathResolver(root, e.patterns, e.log); err != nil {
		return nil, err
	}
	if e.applier, err = fs.NewApplier(e.resolver.Root()); err != nil {
		return nil, err
	}
	return e, nil
}

// Root returns the absolute working directory.
func (e *Engine) Root() string {
	return e.resolver.Root()
}

// Parse extracts every file edit from response. It never fails as a
// whole: problems are collected per block.
func (e *Engine) Parse(response string) Result {
	var res Result
	for _, block := range e.extractor.Extract(response) {
		verdict := e.classifier.Classify(block)
		if !verdict.Accept {
			e.log.Debug("block rejected", "block", block.Index, "lang", block.Lang)
			res.Rejected++
			continue
		}

		d, err := e.parseBlock(block, verdict)
		if err != nil {
			// A code sample or unfenced text without a derivable target is
			// not an edit.
			if notAnEdit(block, verdict, d, err) {
				e.log.Debug("block without target", "block", block.Index, "fenced", block.Fenced)
				res.Rejected++
				continue
			}
			e.log.Warn("block skipped", "block", block.Index, "rule", verdict.Rule, "error", err)
			res.Errors = append(res.Errors, &BlockError{Index: block.Index, Path: d.Path, Err: err})
			continue
		}
		if !e.allowed(d.Path) {
			res.Filtered = append(res.Filtered, d.Path)
			continue
		}

		e.log.Debug("block parsed", "block", block.Index, "rule", verdict.Rule, "path", d.Path, "strategy", d.Strategy, "outcome", d.Outcome)
		res.Diffs = append(res.Diffs, d)
	}
	return res
}

func notAnEdit(block model.CandidateBlock, verdict parser.Verdict, d model.FileDiff, err error) bool {
	if d.Path != "" {
		return false
	}
	if verdict.Evidence == parser.EvidenceCode {
		return errors.Is(err, ErrInvalidFormat)
	}
	return !block.Fenced && errors.Is(err, ErrNoPath)
}

// parseBlock returns a FileDiff with at least Path set when the target was
// resolved, even on error.
func (e *Engine) parseBlock(block model.CandidateBlock, verdict parser.Verdict) (model.FileDiff, error) {
	target, err := e.resolver.Resolve(block)
	if err != nil {
		return model.FileDiff{}, err
	}
	d := model.FileDiff{Path: target.Path, IsNewFile: target.IsNew, Exists: target.Exists, BlockIndex: block.Index}

	if target.Exists {
		if d.OldContent, err = e.resolver.ReadSnapshot(target.Path); err != nil {
			return d, err
		}
		if target.IsNew {
			e.log.Warn("new-file block overwrites an existing file", "block", block.Index, "path", target.Path)
		}
	}

	out, err := e.synth.Synthesize(patcher.Request{
		Text:       block.Text,
		PathLine:   target.PathLine,
		IsNew:      target.IsNew,
		Evidence:   verdict.Evidence,
		OldContent: d.OldContent,
	})
	if err != nil {
		return d, err
	}
	d.NewContent = out.NewContent
	d.Strategy = out.Strategy
	d.Outcome = out.Outcome
	return d, nil
}

func (e *Engine) allowed(path string) bool {
	if len(e.extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, allowed := range e.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Render returns the colored preview of d.
func (e *Engine) Render(d model.FileDiff) string {
	return e.renderer.Render(d)
}

// Unified returns the plain unified diff of d.
func (e *Engine) Unified(d model.FileDiff) (string, error) {
	return render.Unified(d)
}

// Apply writes d to disk. A diff whose change was not found is refused.
func (e *Engine) Apply(d model.FileDiff) error {
	if d.Outcome == model.OutcomeNoMatch {
		return fmt.Errorf("%s: removed lines not found, nothing to apply", d.Path)
	}
	if err := e.applier.Apply(d); err != nil {
		return err
	}
	e.log.Info("file written", "path", d.Path, "new", d.IsNewFile, "strategy", d.Strategy)
	return nil
}
