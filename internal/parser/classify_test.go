package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/codellm/model"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(NewPatterns())

	tests := []struct {
		name     string
		block    model.CandidateBlock
		accept   bool
		rule     string
		evidence Evidence
	}{
		{
			name:     "diff fence with edits",
			block:    model.CandidateBlock{Text: "notes.txt\n+ hello\n+ world", Lang: "diff", Fenced: true},
			accept:   true,
			rule:     "diff-fence",
			evidence: EvidenceLines,
		},
		{
			name:   "diff fence whose only edit is the first line",
			block:  model.CandidateBlock{Text: "+ only header\nplain", Lang: "diff", Fenced: true},
			accept: false,
		},
		{
			name:     "unified headers",
			block:    model.CandidateBlock{Text: "--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,1 @@\n-a\n+b", Fenced: true},
			accept:   true,
			rule:     "unified-headers",
			evidence: EvidenceHunks,
		},
		{
			name:     "hunk header alone",
			block:    model.CandidateBlock{Text: "@@ -3 +3,2 @@\n ctx\n+new", Fenced: true},
			accept:   true,
			rule:     "unified-headers",
			evidence: EvidenceHunks,
		},
		{
			name:     "hunks inside a diff fence",
			block:    model.CandidateBlock{Text: "--- a/x.go\n+++ b/x.go\n@@ -1 +1 @@\n-a\n+b", Lang: "diff", Fenced: true},
			accept:   true,
			rule:     "diff-fence",
			evidence: EvidenceHunks,
		},
		{
			name:     "path first line",
			block:    model.CandidateBlock{Text: "src/lib.rs\n+ fn x() {}", Fenced: true},
			accept:   true,
			rule:     "path-first-line",
			evidence: EvidenceLines,
		},
		{
			name:     "line counts",
			block:    model.CandidateBlock{Text: "change\n- a\n- b"},
			accept:   true,
			rule:     "line-counts",
			evidence: EvidenceLines,
		},
		{
			name:   "single added line without a path",
			block:  model.CandidateBlock{Text: "note\n+ a"},
			accept: false,
		},
		{
			name: "pasted code",
			block: model.CandidateBlock{
				Text:   "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}",
				Lang:   "go",
				Fenced: true,
			},
			accept:   true,
			rule:     "pasted-code",
			evidence: EvidenceCode,
		},
		{
			name: "prose",
			block: model.CandidateBlock{
				Text: "This function reads the configuration file.\n" +
					"It then validates every field in order.\n" +
					"Errors are collected rather than returned early.\n" +
					"The caller decides whether to abort.\n" +
					"Nothing is written back to disk.",
			},
			accept: false,
		},
		{
			name:   "short code sample",
			block:  model.CandidateBlock{Text: "x := 1\ny := 2", Fenced: true},
			accept: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(tt.block)
			assert.Equal(t, tt.accept, v.Accept)
			if tt.accept {
				assert.Equal(t, tt.rule, v.Rule)
				assert.Equal(t, tt.evidence, v.Evidence)
			}
		})
	}
}

func TestClassify_RulesAreOrdered(t *testing.T) {
	c := NewClassifier(NewPatterns())
	var names []string
	for _, r := range c.Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"diff-fence", "unified-headers", "path-first-line", "line-counts", "pasted-code"}, names)
}

func TestClassify_CustomRules(t *testing.T) {
	p := NewPatterns()
	always := Rule{Name: "always", Evidence: EvidenceLines, Match: func(model.CandidateBlock, *Stats) bool { return true }}
	c := NewClassifierWithRules(p, []Rule{always})
	v := c.Classify(model.CandidateBlock{Text: "anything"})
	assert.True(t, v.Accept)
	assert.Equal(t, "always", v.Rule)
}

func TestLooksLikePath(t *testing.T) {
	p := NewPatterns()
	assert.True(t, LooksLikePath(p, "main.go"))
	assert.True(t, LooksLikePath(p, "src/lib.rs"))
	assert.True(t, LooksLikePath(p, `dir\file`))
	assert.True(t, LooksLikePath(p, "Dockerfile.dockerfile"))
	assert.False(t, LooksLikePath(p, "hello world.go"))
	assert.False(t, LooksLikePath(p, "notapath"))
	assert.False(t, LooksLikePath(p, ""))
}
