package parser

import "regexp"

// Patterns holds every compiled matcher used while scanning a response.
// Build it once with NewPatterns and share it for the lifetime of an engine.
type Patterns struct {
	// ClosingFence matches a line that closes a fenced block.
	ClosingFence *regexp.Regexp
	// OpeningFence matches a line that opens a fenced block.
	OpeningFence *regexp.Regexp
	// HunkHeader matches "@@ -s[,c] +s[,c] @@" and captures the four numbers.
	HunkHeader *regexp.Regexp
	// FileHeader matches "--- path" and "+++ path" lines.
	FileHeader *regexp.Regexp
	// SourceExt matches a path ending with a recognized source-file extension.
	SourceExt *regexp.Regexp
	// CodeToken matches lines that carry typical code structure.
	CodeToken *regexp.Regexp
	// BacktickPath extracts `path` from a hint line.
	BacktickPath *regexp.Regexp
}

// NewPatterns compiles the matchers.
func NewPatterns() *Patterns {
	return &Patterns{
		ClosingFence: regexp.MustCompile("^[ \t>]*(?:`{3,}|~{3,})[ \t]*$"),
		OpeningFence: regexp.MustCompile("^[ \t]{0,3}(?:`{3,}|~{3,})"),
		HunkHeader:   regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`),
		FileHeader:   regexp.MustCompile(`^(?:---|\+\+\+) (\S.*)$`),
		SourceExt:    regexp.MustCompile(`(?i)\.(?:go|rs|py|pyi|js|jsx|mjs|cjs|ts|tsx|java|kt|kts|scala|c|h|cc|cpp|cxx|hpp|hh|cs|fs|rb|php|swift|m|mm|lua|pl|pm|sh|bash|zsh|fish|ps1|sql|html|htm|css|scss|sass|less|vue|svelte|json|yaml|yml|toml|ini|cfg|conf|xml|md|markdown|rst|txt|proto|graphql|gql|dart|ex|exs|erl|hrl|hs|ml|mli|clj|cljs|elm|zig|nim|r|jl|tf|nix|gradle|mk|cmake|dockerfile|env|lock|mod|sum)$`),
		CodeToken:    regexp.MustCompile(`^\s*(?:func|fn|def|class|struct|impl|interface|enum|type|return|import|package|pub|use|let|const|var|if|elif|else|for|while|switch|match|case|try|catch|except|async|function|public|private|protected|static|void|module|require|#include|#define)\b|[{};]\s*$|:=|=>|^\s*[\w.\[\]]+\s*[-+*/]?=\s*\S|\w\([^()]*\)\s*[;{]?\s*$`),
		BacktickPath: regexp.MustCompile("`([^`\n]+)`"),
	}
}
