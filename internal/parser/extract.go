package parser

import (
	"log/slog"
	"strings"

	"github.com/sokinpui/codellm/model"
)

// Extractor scans a model response for candidate edit blocks.
type Extractor struct {
	patterns *Patterns
	log      *slog.Logger
}

// NewExtractor creates an Extractor that uses the given compiled patterns.
func NewExtractor(patterns *Patterns, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Extractor{patterns: patterns, log: log}
}

// Extract returns the candidate blocks of response in order of appearance.
// Fenced code blocks are preferred. Only when the response has none are
// unfenced runs of +/- lines considered.
func (e *Extractor) Extract(response string) []model.CandidateBlock {
	if strings.TrimSpace(response) == "" {
		return nil
	}

	codeBlocks, err := ExtractCodeBlocks([]byte(response), e.patterns.ClosingFence)
	if err != nil {
		e.log.Warn("markdown walk failed", "error", err)
	}

	var blocks []model.CandidateBlock
	for _, cb := range codeBlocks {
		if !cb.Closed {
			e.log.Debug("skipping unclosed fence", "lang", cb.Lang)
			continue
		}
		body := strings.TrimRight(cb.Content, "\n")
		if strings.TrimSpace(body) == "" {
			continue
		}
		blocks = append(blocks, model.CandidateBlock{
			Index:  len(blocks),
			Text:   body,
			Lang:   cb.Lang,
			Hint:   cb.Hint,
			Fenced: true,
		})
	}
	if len(codeBlocks) > 0 {
		return blocks
	}

	return e.extractRuns(response)
}

// extractRuns collects maximal runs of lines starting with '+' or '-' that
// sit outside any fence. Blank lines inside a run are kept; trailing blank
// lines are dropped. The closest filename-looking line before a run is
// prepended so the path can still be resolved.
func (e *Extractor) extractRuns(response string) []model.CandidateBlock {
	lines := strings.Split(strings.ReplaceAll(response, "\r\n", "\n"), "\n")

	var blocks []model.CandidateBlock
	inFence := false
	lastRunEnd := 0
	var run []string
	runStart := -1

	flush := func() {
		for len(run) > 0 && strings.TrimSpace(run[len(run)-1]) == "" {
			run = run[:len(run)-1]
		}
		if len(run) == 0 {
			return
		}
		body := run
		if name := e.filenameBefore(lines, lastRunEnd, runStart); name != "" {
			body = append([]string{name}, run...)
		}
		blocks = append(blocks, model.CandidateBlock{
			Index: len(blocks),
			Text:  strings.Join(body, "\n"),
		})
		lastRunEnd = runStart + len(run)
		run = nil
		runStart = -1
	}

	for i, line := range lines {
		if e.patterns.OpeningFence.MatchString(line) {
			flush()
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-"):
			if runStart < 0 {
				runStart = i
			}
			run = append(run, line)
		case strings.TrimSpace(line) == "" && runStart >= 0:
			run = append(run, line)
		default:
			flush()
		}
	}
	flush()
	return blocks
}

// filenameBefore searches lines[from:to] backwards for a bare filename.
func (e *Extractor) filenameBefore(lines []string, from, to int) string {
	for i := to - 1; i >= from && i >= 0; i-- {
		if name := bareFilename(lines[i]); name != "" {
			return name
		}
	}
	return ""
}

// bareFilename returns the line as a file name if it contains a dot and no
// spaces once markdown decoration is removed.
func bareFilename(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimSuffix(s, ":")
	s = strings.Trim(s, "`*_\"'")
	s = strings.TrimSuffix(s, ":")
	if s == "" || strings.ContainsAny(s, " \t") || !strings.Contains(s, ".") {
		return ""
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return ""
	}
	if strings.HasSuffix(s, ".") {
		return ""
	}
	return s
}
