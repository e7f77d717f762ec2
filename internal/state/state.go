package state

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sokinpui/codellm/internal/fs"
	"github.com/sokinpui/codellm/model"
)

const (
	stateDirName  = ".code-llm"
	stateFileName = "state"
	ObjectsDir    = "objects"

	ActionCreate = "create"
	ActionModify = "modify"

	// noHash stands for "no content" in the state file.
	noHash = "-"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Operation is one file written by an applied batch.
type Operation struct {
	// Path is slash-separated and relative to the state root.
	Path   string
	Action string
	// Before is the content hash prior to the write, empty for created files.
	Before string
	After  string
}

// HistoryEntry is one applied batch.
type HistoryEntry struct {
	Timestamp  int64
	Operations []Operation
}

// State is the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager records applied batches and replays them backwards or forwards.
type Manager struct {
	root      string
	statePath string
	StateDir  string
	state     *State
}

// FindRoot returns the git top level containing dir, or dir itself.
func FindRoot(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return dir
	}
	return strings.TrimSpace(string(output))
}

// New loads the state kept below root. A state file that cannot be parsed
// is replaced by an empty history.
func New(root string) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve state root: %w", err)
	}
	stateDir := filepath.Join(abs, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, ObjectsDir), 0o755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		root:      abs,
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		m.state = &State{CurrentIndex: -1}
	}
	return m, nil
}

// Root returns the absolute directory operation paths are relative to.
func (m *Manager) Root() string {
	return m.root
}

// State returns the loaded history.
func (m *Manager) State() State {
	return *m.state
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = &State{CurrentIndex: -1}
			return nil
		}
		return err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		m.state = &State{CurrentIndex: -1}
		return nil
	}

	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	st := &State{CurrentIndex: index}

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		ts, err := strconv.ParseInt(lines[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", lines[0], err)
		}

		entry := HistoryEntry{Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%4 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record")
		}
		for i := 0; i < len(opLines); i += 4 {
			entry.Operations = append(entry.Operations, Operation{
				Action: opLines[i],
				Path:   opLines[i+1],
				Before: fromField(opLines[i+2]),
				After:  fromField(opLines[i+3]),
			})
		}
		st.History = append(st.History, entry)
	}
	if st.CurrentIndex < -1 || st.CurrentIndex >= len(st.History) {
		return fmt.Errorf("invalid state file: index %d out of range", st.CurrentIndex)
	}
	m.state = st
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}
	for _, entry := range m.state.History {
		lines := []string{strconv.FormatInt(entry.Timestamp, 10)}
		for _, op := range entry.Operations {
			lines = append(lines, op.Action, op.Path, toField(op.Before), toField(op.After))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	if err := os.WriteFile(m.statePath, []byte(strings.Join(blocks, "\n\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}
	return nil
}

func toField(hash string) string {
	if hash == "" {
		return noHash
	}
	return hash
}

func fromField(s string) string {
	if s == noHash {
		return ""
	}
	return s
}

// Record stores the contents of applied diffs and appends them as one
// history entry. base is the directory diff paths are relative to. Any
// undone entries after the current one are discarded.
func (m *Manager) Record(base string, diffs []model.FileDiff) error {
	if len(diffs) == 0 {
		return nil
	}
	ops := make([]Operation, 0, len(diffs))
	for _, d := range diffs {
		rel, err := m.relative(base, d.Path)
		if err != nil {
			return err
		}
		op := Operation{Path: rel, Action: ActionModify}
		if d.Creates() {
			op.Action = ActionCreate
		} else if op.Before, err = m.storeObject([]byte(d.OldContent)); err != nil {
			return err
		}
		if op.After, err = m.storeObject([]byte(d.NewContent)); err != nil {
			return err
		}
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: ops,
	})
	m.state.CurrentIndex++
	return m.save()
}

func (m *Manager) relative(base, path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(base, path)
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside of %s", abs, m.root)
	}
	return filepath.ToSlash(rel), nil
}

func (m *Manager) objectPath(hash string) string {
	return filepath.Join(m.StateDir, ObjectsDir, hash)
}

func (m *Manager) storeObject(content []byte) (string, error) {
	hash := fs.HashContent(content)
	p := m.objectPath(hash)
	if _, err := os.Stat(p); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return "", fmt.Errorf("could not store object %s: %w", hash, err)
	}
	return hash, nil
}

func (m *Manager) readObject(hash string) ([]byte, error) {
	data, err := os.ReadFile(m.objectPath(hash))
	if err != nil {
		return nil, fmt.Errorf("missing object %s: %w", hash, err)
	}
	return data, nil
}

// Peek returns the operations Undo would revert, without changing anything.
func (m *Manager) Peek() []Operation {
	if m.state.CurrentIndex < 0 {
		return nil
	}
	return m.state.History[m.state.CurrentIndex].Operations
}

// Undo reverts the current entry and moves the history pointer back. A file
// is only touched when its content still matches what was written.
func (m *Manager) Undo() (undone, failed []string, err error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil, ErrNothingToUndo
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	for _, op := range ops {
		if m.undoOperation(op) {
			undone = append(undone, op.Path)
		} else {
			failed = append(failed, op.Path)
		}
	}
	m.state.CurrentIndex--
	return undone, failed, m.save()
}

// Redo re-applies the entry after the current one. A file is only touched
// when its content still matches the state before the original write.
func (m *Manager) Redo() (redone, failed []string, err error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return nil, nil, ErrNothingToRedo
	}
	for _, op := range m.state.History[next].Operations {
		if m.redoOperation(op) {
			redone = append(redone, op.Path)
		} else {
			failed = append(failed, op.Path)
		}
	}
	m.state.CurrentIndex = next
	return redone, failed, m.save()
}

func (m *Manager) undoOperation(op Operation) bool {
	path := filepath.Join(m.root, filepath.FromSlash(op.Path))
	current, err := fs.GetFileSHA256(path)
	if err != nil {
		// A created file that is already gone needs no undo.
		return errors.Is(err, iofs.ErrNotExist) && op.Action == ActionCreate
	}
	if current != op.After {
		return false
	}

	if op.Action == ActionCreate {
		if err := os.Remove(path); err != nil {
			return false
		}
		m.removeEmptyParents(filepath.Dir(path))
		return true
	}
	return m.writeObject(path, op.Before)
}

func (m *Manager) redoOperation(op Operation) bool {
	path := filepath.Join(m.root, filepath.FromSlash(op.Path))
	current, err := fs.GetFileSHA256(path)
	switch {
	case op.Action == ActionCreate:
		if !errors.Is(err, iofs.ErrNotExist) {
			return false
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return false
		}
	case err != nil || current != op.Before:
		return false
	}
	return m.writeObject(path, op.After)
}

func (m *Manager) writeObject(path, hash string) bool {
	content, err := m.readObject(hash)
	if err != nil {
		return false
	}
	perm := iofs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return os.WriteFile(path, content, perm) == nil
}

// removeEmptyParents removes dir and its parents while they are empty,
// stopping at the root.
func (m *Manager) removeEmptyParents(dir string) {
	for dir != m.root && strings.HasPrefix(dir, m.root) {
		if empty, _ := fs.IsEmpty(dir); !empty {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
