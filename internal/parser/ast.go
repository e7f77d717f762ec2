package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a parsed code block from markdown content.
type CodeBlock struct {
	// Hint is the last line of the paragraph or heading immediately preceding
	// the code block, or a path given in the fence info string.
	Hint string
	// Lang is the language identifier of the code block (e.g., "go", "diff").
	Lang string
	// Content is the raw text inside the code block.
	Content string
	// Closed reports whether a closing fence follows the content.
	Closed bool
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks
// in document order. closing is used to verify that each block is
// terminated, since the markdown grammar runs an unclosed fence to the end
// of the document.
func ExtractCodeBlocks(source []byte, closing *regexp.Regexp) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		block.Lang = strings.ToLower(string(fenced.Language(source)))
		if fenced.Info != nil {
			block.Hint = infoPath(string(fenced.Info.Segment.Value(source)))
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		if n := lines.Len(); n > 0 {
			block.Closed = closedAt(source, lines.At(n-1).Stop, closing)
		}

		if block.Hint == "" {
			block.Hint = precedingLine(fenced.PreviousSibling(), source)
		}

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// closedAt reports whether the line starting at offset is a closing fence.
func closedAt(source []byte, offset int, closing *regexp.Regexp) bool {
	if offset >= len(source) {
		return false
	}
	rest := source[offset:]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return closing.Match(bytes.TrimRight(rest, "\r"))
}

// precedingLine returns the raw last line of a paragraph or heading node.
func precedingLine(prev ast.Node, source []byte) string {
	if prev == nil {
		return ""
	}
	switch prev.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
	default:
		return ""
	}
	lines := prev.Lines()
	if lines.Len() == 0 {
		return ""
	}
	last := lines.At(lines.Len() - 1)
	return strings.TrimSpace(string(last.Value(source)))
}

// infoPath finds a path in a fence info string such as
// "go file=cmd/main.go" or "diff src/lib.rs".
func infoPath(info string) string {
	fields := strings.Fields(info)
	if len(fields) < 2 {
		return ""
	}
	for _, f := range fields[1:] {
		if v, ok := strings.CutPrefix(f, "file="); ok {
			return v
		}
	}
	return fields[1]
}
