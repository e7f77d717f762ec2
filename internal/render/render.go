package render

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/sokinpui/codellm/model"
)

const defaultContext = 3

// Renderer draws colored previews of file diffs. The preview is always
// recomputed from the old and new content.
type Renderer struct {
	re      *lipgloss.Renderer
	context int

	headerStyle lipgloss.Style
	hunkStyle   lipgloss.Style
	addStyle    lipgloss.Style
	delStyle    lipgloss.Style
	ctxStyle    lipgloss.Style
	faintStyle  lipgloss.Style
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColorProfile forces the terminal color profile, e.g. termenv.Ascii
// for plain output.
func WithColorProfile(p termenv.Profile) Option {
	return func(r *Renderer) { r.re.SetColorProfile(p) }
}

// WithContext sets the number of unchanged lines shown around changes.
func WithContext(n int) Option {
	return func(r *Renderer) { r.context = n }
}

// New creates a Renderer whose color support is detected from w.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{re: lipgloss.NewRenderer(w), context: defaultContext}
	for _, opt := range opts {
		opt(r)
	}
	r.headerStyle = r.re.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	r.hunkStyle = r.re.NewStyle().Foreground(lipgloss.Color("37"))
	// Diff lines keep their tabs.
	r.addStyle = r.re.NewStyle().Foreground(lipgloss.Color("78")).TabWidth(lipgloss.NoTabConversion)
	r.delStyle = r.re.NewStyle().Foreground(lipgloss.Color("197")).TabWidth(lipgloss.NoTabConversion)
	r.ctxStyle = r.re.NewStyle().TabWidth(lipgloss.NoTabConversion)
	r.faintStyle = r.re.NewStyle().Faint(true)
	return r
}

// Render returns the preview of d: a header line, a stat line, then the
// grouped line changes.
func (r *Renderer) Render(d model.FileDiff) string {
	var b strings.Builder

	title := d.Path
	switch {
	case d.Creates():
		title += " (new file)"
	case d.IsNewFile:
		title += " (overwrites existing file)"
	}
	b.WriteString(r.headerStyle.Render(title))
	b.WriteString(" ")
	b.WriteString(r.faintStyle.Render(Stat(d)))
	b.WriteString("\n")

	before, after := splitLines(d.OldContent), splitLines(d.NewContent)
	if d.Creates() {
		before = nil
	}
	m := difflib.NewMatcher(before, after)
	groups := m.GetGroupedOpCodes(r.context)
	if len(groups) == 0 {
		b.WriteString(r.faintStyle.Render("(no changes)"))
		b.WriteString("\n")
		return b.String()
	}

	for _, g := range groups {
		first, last := g[0], g[len(g)-1]
		b.WriteString(r.hunkStyle.Render(fmt.Sprintf("@@ -%s +%s @@", span(first.I1, last.I2), span(first.J1, last.J2))))
		b.WriteString("\n")
		for _, op := range g {
			switch op.Tag {
			case 'e':
				r.lines(&b, r.ctxStyle, " ", before[op.I1:op.I2])
			case 'd':
				r.lines(&b, r.delStyle, "-", before[op.I1:op.I2])
			case 'i':
				r.lines(&b, r.addStyle, "+", after[op.J1:op.J2])
			case 'r':
				r.lines(&b, r.delStyle, "-", before[op.I1:op.I2])
				r.lines(&b, r.addStyle, "+", after[op.J1:op.J2])
			}
		}
	}
	return b.String()
}

func (r *Renderer) lines(b *strings.Builder, style lipgloss.Style, marker string, lines []string) {
	for _, l := range lines {
		b.WriteString(style.Render(marker + l))
		b.WriteString("\n")
	}
}

// span formats a half-open line range the way unified diff headers do.
func span(start, stop int) string {
	n := stop - start
	switch {
	case n == 1:
		return fmt.Sprintf("%d", start+1)
	case n == 0:
		return fmt.Sprintf("%d,0", start)
	default:
		return fmt.Sprintf("%d,%d", start+1, n)
	}
}

// Counts returns the number of added and removed lines between the old and
// new content of d.
func Counts(d model.FileDiff) (added, removed int) {
	before, after := splitLines(d.OldContent), splitLines(d.NewContent)
	if d.Creates() {
		before = nil
	}
	for _, op := range difflib.NewMatcher(before, after).GetOpCodes() {
		switch op.Tag {
		case 'd':
			removed += op.I2 - op.I1
		case 'i':
			added += op.J2 - op.J1
		case 'r':
			removed += op.I2 - op.I1
			added += op.J2 - op.J1
		}
	}
	return added, removed
}

// Stat returns the one-line "+N -M" summary of d.
func Stat(d model.FileDiff) string {
	added, removed := Counts(d)
	return fmt.Sprintf("+%d -%d", added, removed)
}

// Unified returns the plain unified diff of d with three lines of context.
func Unified(d model.FileDiff) (string, error) {
	path := filepath.ToSlash(d.Path)
	from := "a/" + path
	old := d.OldContent
	if d.Creates() {
		from, old = "/dev/null", ""
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        keepEndings(old),
		B:        keepEndings(d.NewContent),
		FromFile: from,
		ToFile:   "b/" + path,
		Context:  defaultContext,
	})
}

// splitLines splits content into lines without line endings.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// keepEndings splits content after each newline, terminating the last line
// if needed.
func keepEndings(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
