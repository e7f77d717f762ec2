package model

// CandidateBlock is a span of a model response considered for edit classification.
type CandidateBlock struct {
	// Index is the position of the block among all candidates of the response.
	Index int
	// Text is the block body without fence delimiters or info line.
	Text string
	// Lang is the fence info tag (e.g. "diff"). Empty for unfenced runs.
	Lang string
	// Hint is the nearest preceding line that may name the target file.
	Hint string
	// Fenced reports whether the block came from a fenced code block.
	Fenced bool
}

// Strategy names the way a FileDiff's new content was synthesized.
type Strategy string

const (
	StrategyNewFile   Strategy = "new-file"
	StrategyHunks     Strategy = "hunks"
	StrategyLineList  Strategy = "line-list"
	StrategyWholeFile Strategy = "whole-file"
)

// Outcome tells whether synthesis actually located the requested change.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeNoMatch means the removed lines were not found in the file;
	// NewContent equals OldContent.
	OutcomeNoMatch Outcome = "no-match"
)

// FileDiff is one parsed, ready-to-apply file change.
// It is a plain value: produced once, rendered, then applied at most once.
type FileDiff struct {
	// Path is relative to the working directory. It is never absolute and
	// never contains a parent-directory component.
	Path      string
	IsNewFile bool
	// Exists reports that the target was on disk at parse time. A new-file
	// diff with Exists set overwrites that file; OldContent holds its content.
	Exists     bool
	OldContent string
	NewContent string
	Strategy   Strategy
	Outcome    Outcome
	BlockIndex int
}

// Creates reports whether applying the diff creates a file that did not exist.
func (d FileDiff) Creates() bool {
	return d.IsNewFile && !d.Exists
}

// Changed reports whether applying the diff would modify anything on disk.
func (d FileDiff) Changed() bool {
	return d.Creates() || d.OldContent != d.NewContent
}

// Summary holds the results of an operation for display.
type Summary struct {
	Created  []string
	Modified []string
	Skipped  []string
	Failed   []string
	Message  string
}
