package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/codellm/internal/fs"
	"github.com/sokinpui/codellm/model"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	return string(data)
}

// applyAndRecord writes the diffs the way the app does, then records them.
func applyAndRecord(t *testing.T, m *Manager, root string, diffs ...model.FileDiff) {
	t.Helper()
	a, err := fs.NewApplier(root)
	require.NoError(t, err)
	for _, d := range diffs {
		require.NoError(t, a.Apply(d))
	}
	require.NoError(t, m.Record(root, diffs))
}

func TestUndoRedo(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "a\nb\n")

	m, err := New(root)
	require.NoError(t, err)

	applyAndRecord(t, m, root,
		model.FileDiff{Path: "a.txt", OldContent: "a\nb\n", NewContent: "a\nx\n"},
		model.FileDiff{Path: filepath.Join("new", "dir", "n.txt"), IsNewFile: true, NewContent: "hello\n"},
	)

	undone, failed, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "new/dir/n.txt"}, undone)
	assert.Empty(t, failed)
	assert.Equal(t, "a\nb\n", read(t, root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(root, "new", "dir", "n.txt"))
	assert.NoDirExists(t, filepath.Join(root, "new"))

	_, _, err = m.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	redone, failed, err := m.Redo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "new/dir/n.txt"}, redone)
	assert.Empty(t, failed)
	assert.Equal(t, "a\nx\n", read(t, root, "a.txt"))
	assert.Equal(t, "hello\n", read(t, root, "new/dir/n.txt"))

	_, _, err = m.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestUndo_SkipsFilesChangedSince(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "one\n")
	m, err := New(root)
	require.NoError(t, err)

	applyAndRecord(t, m, root, model.FileDiff{Path: "a.txt", OldContent: "one\n", NewContent: "two\n"})
	write(t, root, "a.txt", "edited by hand\n")

	undone, failed, err := m.Undo()
	require.NoError(t, err)
	assert.Empty(t, undone)
	assert.Equal(t, []string{"a.txt"}, failed)
	assert.Equal(t, "edited by hand\n", read(t, root, "a.txt"))
}

func TestRedo_SkipsRecreatedFile(t *testing.T) {
	root := t.TempDir()
	m, err := New(root)
	require.NoError(t, err)

	applyAndRecord(t, m, root, model.FileDiff{Path: "n.txt", IsNewFile: true, NewContent: "x\n"})
	_, _, err = m.Undo()
	require.NoError(t, err)

	write(t, root, "n.txt", "someone else\n")
	redone, failed, err := m.Redo()
	require.NoError(t, err)
	assert.Empty(t, redone)
	assert.Equal(t, []string{"n.txt"}, failed)
}

func TestRecord_TruncatesRedoHistory(t *testing.T) {
	root := t.TempDir()
	m, err := New(root)
	require.NoError(t, err)

	applyAndRecord(t, m, root, model.FileDiff{Path: "a.txt", IsNewFile: true, NewContent: "1\n"})
	applyAndRecord(t, m, root, model.FileDiff{Path: "a.txt", OldContent: "1\n", NewContent: "2\n"})
	_, _, err = m.Undo()
	require.NoError(t, err)

	applyAndRecord(t, m, root, model.FileDiff{Path: "b.txt", IsNewFile: true, NewContent: "b\n"})
	st := m.State()
	assert.Len(t, st.History, 2)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, "b.txt", st.History[1].Operations[0].Path)
}

func TestStatePersists(t *testing.T) {
	root := t.TempDir()
	m, err := New(root)
	require.NoError(t, err)
	applyAndRecord(t, m, root, model.FileDiff{Path: "a.txt", IsNewFile: true, NewContent: "1\n"})

	reloaded, err := New(root)
	require.NoError(t, err)
	st := reloaded.State()
	require.Len(t, st.History, 1)
	assert.Equal(t, 0, st.CurrentIndex)

	op := st.History[0].Operations[0]
	assert.Equal(t, ActionCreate, op.Action)
	assert.Equal(t, "a.txt", op.Path)
	assert.Empty(t, op.Before)
	assert.Equal(t, fs.HashContent([]byte("1\n")), op.After)
	assert.FileExists(t, filepath.Join(root, ".code-llm", ObjectsDir, op.After))

	assert.Equal(t, st.History[0].Operations, reloaded.Peek())
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".code-llm/state", "not a number\n\n")

	m, err := New(root)
	require.NoError(t, err)
	assert.Equal(t, -1, m.State().CurrentIndex)
	assert.Empty(t, m.State().History)
}

func TestUndo_OverwrittenFileRestored(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.go", "package main\n\nfunc keep() {}\n")
	m, err := New(root)
	require.NoError(t, err)

	applyAndRecord(t, m, root, model.FileDiff{
		Path:       "main.go",
		IsNewFile:  true,
		Exists:     true,
		OldContent: "package main\n\nfunc keep() {}\n",
		NewContent: "package main\n",
	})
	op := m.Peek()[0]
	assert.Equal(t, ActionModify, op.Action)
	assert.Equal(t, fs.HashContent([]byte("package main\n\nfunc keep() {}\n")), op.Before)

	undone, failed, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, undone)
	assert.Empty(t, failed)
	assert.Equal(t, "package main\n\nfunc keep() {}\n", read(t, root, "main.go"))
}
