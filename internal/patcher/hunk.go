package patcher

import (
	"fmt"
	"strconv"
	"strings"
)

// LineKind classifies one line inside a hunk.
type LineKind int

const (
	Context LineKind = iota
	Removed
	Added
)

// HunkLine is one body line of a hunk without its marker.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk is one "@@ -s,c +s,c @@" section of a unified diff.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []HunkLine
}

// String renders the hunk header.
func (h Hunk) String() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// NewSide returns the context and added lines in hunk order.
func (h Hunk) NewSide() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind != Removed {
			out = append(out, l.Text)
		}
	}
	return out
}

// Added returns only the added lines.
func (h Hunk) Added() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == Added {
			out = append(out, l.Text)
		}
	}
	return out
}

func (h Hunk) oldSideLen() int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind != Added {
			n++
		}
	}
	return n
}

// ParseHunks parses the hunks of a unified diff body. Lines before the
// first hunk header are ignored. An omitted count defaults to 1. Empty lines
// are empty context and "\ No newline at end of file" markers are skipped.
func (s *Synthesizer) ParseHunks(lines []string) []Hunk {
	var hunks []Hunk
	var cur *Hunk

	flush := func() {
		if cur == nil {
			return
		}
		// Blank lines past the declared old-side length are spacing, not context.
		for len(cur.Lines) > 0 && cur.oldSideLen() > cur.OldCount {
			last := cur.Lines[len(cur.Lines)-1]
			if last.Kind != Context || last.Text != "" {
				break
			}
			cur.Lines = cur.Lines[:len(cur.Lines)-1]
		}
		hunks = append(hunks, *cur)
		cur = nil
	}

	for _, line := range lines {
		if m := s.patterns.HunkHeader.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Hunk{
				OldStart: atoi(m[1], 0),
				OldCount: atoi(m[2], 1),
				NewStart: atoi(m[3], 0),
				NewCount: atoi(m[4], 1),
			}
			continue
		}
		if cur == nil {
			continue
		}
		switch {
		case line == "":
			cur.Lines = append(cur.Lines, HunkLine{Kind: Context})
		case strings.HasPrefix(line, `\`):
		case line[0] == ' ':
			cur.Lines = append(cur.Lines, HunkLine{Kind: Context, Text: line[1:]})
		case line[0] == '-':
			cur.Lines = append(cur.Lines, HunkLine{Kind: Removed, Text: line[1:]})
		case line[0] == '+':
			cur.Lines = append(cur.Lines, HunkLine{Kind: Added, Text: line[1:]})
		default:
			// Context lines that lost their leading space.
			cur.Lines = append(cur.Lines, HunkLine{Kind: Context, Text: line})
		}
	}
	flush()
	return hunks
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
