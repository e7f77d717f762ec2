package parser

import (
	"strings"

	"github.com/sokinpui/codellm/model"
)

// Evidence is the structural signal the classifier found in a block.
// It selects the content synthesis strategy.
type Evidence string

const (
	// EvidenceHunks means the block has unified-diff hunk headers.
	EvidenceHunks Evidence = "hunks"
	// EvidenceLines means the block is a flat list of +/- lines.
	EvidenceLines Evidence = "lines"
	// EvidenceCode means the block looks like pasted source code and is
	// treated as a whole-file replacement.
	EvidenceCode Evidence = "code"
)

// Verdict is the result of classifying one candidate block.
type Verdict struct {
	Accept   bool
	Rule     string
	Evidence Evidence
}

// Stats are the per-block facts rules decide on. They are computed once.
type Stats struct {
	Lines     []string
	FirstLine string // first non-empty line, trimmed
	Plus      int    // lines starting with '+'
	Minus     int    // lines starting with '-'
	HasHeader bool   // a line starts with "--- " or "+++ "
	HasHunk   bool   // a line is a hunk header
	BodyEdits int    // +/- lines other than the first line and file headers
	CodeLines int    // non-empty lines carrying code tokens
	NonEmpty  int
}

// Rule is one named predicate in the classification cascade.
type Rule struct {
	Name     string
	Evidence Evidence
	Match    func(b model.CandidateBlock, s *Stats) bool
}

// Classifier decides whether a candidate block is a real file edit.
type Classifier struct {
	patterns *Patterns
	rules    []Rule
}

// NewClassifier returns a classifier with the default rule cascade.
func NewClassifier(patterns *Patterns) *Classifier {
	return NewClassifierWithRules(patterns, DefaultRules(patterns))
}

// NewClassifierWithRules returns a classifier evaluating rules in order.
func NewClassifierWithRules(patterns *Patterns, rules []Rule) *Classifier {
	return &Classifier{patterns: patterns, rules: rules}
}

// Rules returns the rule cascade in evaluation order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify evaluates the rules in order; the first match decides.
func (c *Classifier) Classify(b model.CandidateBlock) Verdict {
	s := c.Stats(b)
	for _, r := range c.rules {
		if !r.Match(b, s) {
			continue
		}
		ev := r.Evidence
		if ev != EvidenceCode && s.HasHunk {
			ev = EvidenceHunks
		}
		return Verdict{Accept: true, Rule: r.Name, Evidence: ev}
	}
	return Verdict{}
}

// Stats computes the facts about a block used by the rules.
func (c *Classifier) Stats(b model.CandidateBlock) *Stats {
	s := &Stats{Lines: strings.Split(b.Text, "\n")}
	first := -1
	for i, line := range s.Lines {
		line = strings.TrimRight(line, "\r")
		s.Lines[i] = line
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.NonEmpty++
		if first < 0 {
			first = i
			s.FirstLine = strings.TrimSpace(line)
		}

		isHeader := strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ")
		if isHeader {
			s.HasHeader = true
		}
		if c.patterns.HunkHeader.MatchString(line) {
			s.HasHunk = true
		}
		switch {
		case strings.HasPrefix(line, "+"):
			s.Plus++
		case strings.HasPrefix(line, "-"):
			s.Minus++
		}
		if i != first && !isHeader && (strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")) {
			s.BodyEdits++
		}
		if c.patterns.CodeToken.MatchString(line) {
			s.CodeLines++
		}
	}
	return s
}

// DefaultRules is the classification cascade, strongest signal first.
func DefaultRules(p *Patterns) []Rule {
	return []Rule{
		{Name: "diff-fence", Evidence: EvidenceLines, Match: matchDiffFence},
		{Name: "unified-headers", Evidence: EvidenceLines, Match: matchUnifiedHeaders},
		{Name: "path-first-line", Evidence: EvidenceLines, Match: func(b model.CandidateBlock, s *Stats) bool {
			return LooksLikePath(p, s.FirstLine) && s.Plus+s.Minus > 0
		}},
		{Name: "line-counts", Evidence: EvidenceLines, Match: matchLineCounts},
		{Name: "pasted-code", Evidence: EvidenceCode, Match: matchPastedCode},
	}
}

func matchDiffFence(b model.CandidateBlock, s *Stats) bool {
	if !b.Fenced || (b.Lang != "diff" && b.Lang != "patch") {
		return false
	}
	return s.BodyEdits > 0
}

func matchUnifiedHeaders(_ model.CandidateBlock, s *Stats) bool {
	return s.HasHeader || s.HasHunk
}

func matchLineCounts(_ model.CandidateBlock, s *Stats) bool {
	return s.Plus >= 2 || s.Minus >= 2 || (s.Plus >= 1 && s.Minus >= 1)
}

// matchPastedCode accepts blocks of more than three lines where over a
// quarter of the non-empty lines carry code tokens.
func matchPastedCode(_ model.CandidateBlock, s *Stats) bool {
	if len(s.Lines) <= 3 || s.NonEmpty == 0 {
		return false
	}
	return s.CodeLines*4 > s.NonEmpty
}

// LooksLikePath reports whether s ends with a known source extension or
// contains a path separator. Strings with inner whitespace never qualify.
func LooksLikePath(p *Patterns, s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	return p.SourceExt.MatchString(s) || strings.ContainsAny(s, `/\`)
}
