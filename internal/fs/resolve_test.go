package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/codellm/internal/parser"
	"github.com/sokinpui/codellm/model"
)

func newTestResolver(t *testing.T) (*PathResolver, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := NewPathResolver(dir, parser.NewPatterns(), nil)
	require.NoError(t, err)
	return r, dir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		rewritten bool
	}{
		{"src/lib.rs", filepath.Join("src", "lib.rs"), false},
		{"./src/lib.rs", filepath.Join("src", "lib.rs"), false},
		{`src\lib.rs`, filepath.Join("src", "lib.rs"), false},
		{"../../etc/passwd", "passwd", true},
		{"src/../../secret.txt", "secret.txt", true},
		{"/etc/passwd", "passwd", true},
		{`\windows\system.ini`, "system.ini", true},
		{`C:\Users\me\notes.txt`, "notes.txt", true},
		{"..", "", true},
		{"/", "", true},
		{".", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, rewritten := Sanitize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rewritten, rewritten)
			assert.False(t, filepath.IsAbs(got))
			assert.NotContains(t, got, "..")
		})
	}
}

func TestResolve_HeaderPreferred(t *testing.T) {
	r, dir := newTestResolver(t)
	writeFile(t, dir, "src/lib.rs", "fn a() {}\n")

	res, err := r.Resolve(model.CandidateBlock{Text: "--- a/src/lib.rs\n+++ b/src/lib.rs\n@@ -1 +1 @@\n-a\n+b"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("src", "lib.rs"), res.Path)
	assert.False(t, res.IsNew)
	assert.True(t, res.Exists)
	assert.Equal(t, SourceHeader, res.Source)
	assert.Equal(t, -1, res.PathLine)
}

func TestResolve_DevNullMeansNew(t *testing.T) {
	r, dir := newTestResolver(t)
	writeFile(t, dir, "exists.go", "package x\n")

	res, err := r.Resolve(model.CandidateBlock{Text: "--- /dev/null\n+++ b/exists.go\n@@ -0,0 +1 @@\n+package y"})
	require.NoError(t, err)
	assert.Equal(t, "exists.go", res.Path)
	assert.True(t, res.IsNew)
	assert.True(t, res.Exists)
}

func TestResolve_DeletionRejected(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve(model.CandidateBlock{Text: "--- a/x.go\n+++ /dev/null\n@@ -1 +0,0 @@\n-package x"})
	assert.ErrorIs(t, err, model.ErrInvalidFormat)
}

func TestResolve_FirstLine(t *testing.T) {
	r, _ := newTestResolver(t)

	tests := []struct {
		text string
		want string
	}{
		{"notes.txt\n+ hello", "notes.txt"},
		{"// src/main.go\n+ x", filepath.Join("src", "main.go")},
		{"# scripts/run.sh\n+ echo", filepath.Join("scripts", "run.sh")},
		{"/* style.css */\n+ a {}", "style.css"},
		{"`pkg/a.go`:\n- x\n+ y", filepath.Join("pkg", "a.go")},
		{"+ new/file.py\n+ print()", filepath.Join("new", "file.py")},
		{"Makefile\n+all:", "Makefile"},
	}
	for _, tt := range tests {
		res, err := r.Resolve(model.CandidateBlock{Text: tt.text})
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, res.Path, tt.text)
		assert.Equal(t, SourceFirstLine, res.Source)
		assert.Equal(t, 0, res.PathLine)
		assert.True(t, res.IsNew)
	}
}

func TestResolve_HintFallback(t *testing.T) {
	r, _ := newTestResolver(t)
	res, err := r.Resolve(model.CandidateBlock{Text: "-b\n+x", Hint: "Change `app/config.yaml` as follows:"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("app", "config.yaml"), res.Path)
	assert.Equal(t, SourceHint, res.Source)
	assert.Equal(t, -1, res.PathLine)
}

func TestResolve_NoPath(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve(model.CandidateBlock{Text: "- old\n+ new"})
	assert.ErrorIs(t, err, model.ErrInvalidFormat)
	assert.ErrorIs(t, err, model.ErrNoPath)
}

func TestResolve_TraversalReducedToBaseName(t *testing.T) {
	r, _ := newTestResolver(t)
	for _, text := range []string{
		"../../etc/passwd.txt\n+ x",
		"/etc/hosts.txt\n+ x",
		"+++ ../outside.go\n+ x",
	} {
		res, err := r.Resolve(model.CandidateBlock{Text: text})
		require.NoError(t, err, text)
		assert.True(t, res.Rewritten, text)
		assert.Equal(t, filepath.Base(res.Path), res.Path, text)
		assert.NotContains(t, res.Path, "..")
	}
}

func TestResolve_BaseNameFallback(t *testing.T) {
	r, dir := newTestResolver(t)
	writeFile(t, dir, "lib.rs", "fn a() {}\n")

	res, err := r.Resolve(model.CandidateBlock{Text: "project/src/lib.rs\n- fn a() {}\n+ fn b() {}"})
	require.NoError(t, err)
	assert.Equal(t, "lib.rs", res.Path)
	assert.False(t, res.IsNew)
}

func TestResolve_DirectoryIsNotAFile(t *testing.T) {
	r, dir := newTestResolver(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg.go"), 0o755))

	res, err := r.Resolve(model.CandidateBlock{Text: "pkg.go\n+ x"})
	require.NoError(t, err)
	assert.True(t, res.IsNew)
}

func TestReadSnapshot(t *testing.T) {
	r, dir := newTestResolver(t)
	writeFile(t, dir, "a.txt", "hello\n")

	got, err := r.ReadSnapshot("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", got)

	_, err = r.ReadSnapshot("missing.txt")
	assert.ErrorIs(t, err, model.ErrFileNotFound)
}
