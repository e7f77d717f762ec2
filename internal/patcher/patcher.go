package patcher

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sokinpui/codellm/internal/parser"
	"github.com/sokinpui/codellm/model"
)

// Request is everything needed to synthesize the new content of one file.
type Request struct {
	// Text is the raw block body.
	Text string
	// PathLine is the index of the block line that named the path, or -1.
	// That line is never content.
	PathLine int
	IsNew    bool
	Evidence parser.Evidence
	// OldContent is the file snapshot. Ignored for new files.
	OldContent string
}

// Result is the synthesized content and how it was obtained.
type Result struct {
	NewContent string
	Strategy   model.Strategy
	Outcome    model.Outcome
}

// Synthesizer turns accepted blocks into full file contents.
type Synthesizer struct {
	patterns *parser.Patterns
	log      *slog.Logger
}

// New creates a Synthesizer.
func New(patterns *parser.Patterns, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Synthesizer{patterns: patterns, log: log}
}

// Synthesize computes the new content for req.
func (s *Synthesizer) Synthesize(req Request) (Result, error) {
	body := s.body(req)

	if req.Evidence == parser.EvidenceCode {
		return s.wholeFile(req, body)
	}
	if req.IsNew {
		return s.newFile(req, body)
	}

	doc := splitDocument(req.OldContent)
	if req.Evidence == parser.EvidenceHunks {
		if hunks := s.ParseHunks(body); len(hunks) > 0 {
			doc.lines = s.applyHunks(doc.lines, hunks)
			return Result{NewContent: doc.String(), Strategy: model.StrategyHunks, Outcome: model.OutcomeApplied}, nil
		}
	}
	return s.lineList(doc, body)
}

// body returns the block lines without the path line and the leading file
// header region.
func (s *Synthesizer) body(req Request) []string {
	lines := strings.Split(req.Text, "\n")
	out := make([]string, 0, len(lines))
	header := true
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if i == req.PathLine {
			continue
		}
		if header {
			if strings.TrimSpace(line) == "" || s.patterns.FileHeader.MatchString(line) {
				continue
			}
			header = false
		}
		out = append(out, line)
	}
	return out
}

func (s *Synthesizer) newFile(req Request, body []string) (Result, error) {
	var lines []string
	if req.Evidence == parser.EvidenceHunks {
		for _, h := range s.ParseHunks(body) {
			lines = append(lines, h.Added()...)
		}
	} else {
		for _, line := range body {
			if !strings.HasPrefix(line, "+") || strings.HasPrefix(line, "+++ ") {
				continue
			}
			lines = append(lines, stripOneSpace(line[1:]))
		}
	}
	if len(lines) == 0 {
		return Result{}, fmt.Errorf("%w: new file block has no added lines", model.ErrInvalidFormat)
	}
	doc := document{lines: lines, eol: "\n", trailing: true}
	return Result{NewContent: doc.String(), Strategy: model.StrategyNewFile, Outcome: model.OutcomeApplied}, nil
}

func (s *Synthesizer) wholeFile(req Request, body []string) (Result, error) {
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	if len(body) == 0 {
		return Result{}, fmt.Errorf("%w: empty file body", model.ErrInvalidFormat)
	}
	doc := document{lines: body, eol: "\n", trailing: true}
	if !req.IsNew {
		old := splitDocument(req.OldContent)
		doc.eol, doc.trailing = old.eol, old.trailing
	}
	return Result{NewContent: doc.String(), Strategy: model.StrategyWholeFile, Outcome: model.OutcomeApplied}, nil
}

// applyHunks splices each hunk into the original line array. Hunks are
// applied in old-start order, each range clamped to the array and to the end
// of the previous hunk.
func (s *Synthesizer) applyHunks(orig []string, hunks []Hunk) []string {
	sorted := make([]Hunk, len(hunks))
	copy(sorted, hunks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OldStart < sorted[j].OldStart })

	out := make([]string, 0, len(orig))
	cursor := 0
	for _, h := range sorted {
		start := h.OldStart - 1
		if h.OldCount == 0 {
			// A zero-length old range inserts after line OldStart.
			start = h.OldStart
		}
		start = min(max(start, cursor), len(orig))
		end := min(max(start+h.OldCount, start), len(orig))

		s.log.Debug("applying hunk", "hunk", h.String(), "from", start, "to", end)
		out = append(out, orig[cursor:start]...)
		out = append(out, h.NewSide()...)
		cursor = end
	}
	return append(out, orig[cursor:]...)
}

// lineList replaces the first exact run of the removed lines with the added
// lines. Without a match the document is returned unchanged.
func (s *Synthesizer) lineList(doc document, body []string) (Result, error) {
	var removed, added []string
	for _, line := range body {
		switch {
		case strings.HasPrefix(line, "-"):
			removed = append(removed, line[1:])
		case strings.HasPrefix(line, "+"):
			added = append(added, stripOneSpace(line[1:]))
		}
	}
	if len(removed) == 0 && len(added) == 0 {
		return Result{}, fmt.Errorf("%w: block has no edit lines", model.ErrInvalidFormat)
	}

	res := Result{Strategy: model.StrategyLineList, Outcome: model.OutcomeApplied}
	if len(removed) == 0 {
		doc.lines = append(doc.lines, added...)
		res.NewContent = doc.String()
		return res, nil
	}

	at := indexRun(doc.lines, removed)
	if at < 0 && allHaveLeadingSpace(removed) {
		stripped := make([]string, len(removed))
		for i, r := range removed {
			stripped[i] = r[1:]
		}
		if at = indexRun(doc.lines, stripped); at >= 0 {
			removed = stripped
		}
	}
	if at < 0 {
		s.log.Debug("removed lines not found", "lines", len(removed))
		res.Outcome = model.OutcomeNoMatch
		res.NewContent = doc.raw
		return res, nil
	}

	lines := make([]string, 0, len(doc.lines)-len(removed)+len(added))
	lines = append(lines, doc.lines[:at]...)
	lines = append(lines, added...)
	lines = append(lines, doc.lines[at+len(removed):]...)
	doc.lines = lines
	res.NewContent = doc.String()
	return res, nil
}

func indexRun(lines, run []string) int {
	for i := 0; i+len(run) <= len(lines); i++ {
		match := true
		for j := range run {
			if lines[i+j] != run[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func allHaveLeadingSpace(lines []string) bool {
	for _, l := range lines {
		if !strings.HasPrefix(l, " ") {
			return false
		}
	}
	return true
}

func stripOneSpace(s string) string {
	return strings.TrimPrefix(s, " ")
}

// document is file content split into lines plus its line-ending conventions.
type document struct {
	raw      string
	lines    []string
	eol      string
	trailing bool
}

func splitDocument(content string) document {
	d := document{raw: content, eol: "\n", trailing: true}
	if content == "" {
		return d
	}
	if strings.Contains(content, "\r\n") {
		d.eol = "\r\n"
	}
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	d.trailing = strings.HasSuffix(normalized, "\n")
	d.lines = strings.Split(strings.TrimSuffix(normalized, "\n"), "\n")
	return d
}

// String joins the lines back using the document's conventions.
func (d document) String() string {
	if len(d.lines) == 0 {
		return ""
	}
	out := strings.Join(d.lines, d.eol)
	if d.trailing {
		out += d.eol
	}
	return out
}
