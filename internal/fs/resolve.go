package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/codellm/internal/parser"
	"github.com/sokinpui/codellm/model"
)

const devNull = "/dev/null"

// PathSource tells where a resolved path came from.
type PathSource string

const (
	SourceHeader    PathSource = "header"
	SourceFirstLine PathSource = "first-line"
	SourceHint      PathSource = "hint"
)

// Resolution is the target of one accepted block.
type Resolution struct {
	// Path is sanitized and relative to the resolver's root.
	Path  string
	IsNew bool
	// Exists reports that Path names a regular file. It can be set together
	// with IsNew when a "--- /dev/null" header targets an existing file.
	Exists bool
	// Rewritten reports that sanitization reduced the path to its base name.
	Rewritten bool
	Source    PathSource
	// PathLine is the index of the block line that named the path, or -1.
	PathLine int
}

// knownNames are extensionless file names accepted as paths.
var knownNames = map[string]bool{
	"Makefile": true, "makefile": true, "GNUmakefile": true,
	"Dockerfile": true, "Containerfile": true, "Jenkinsfile": true,
	"Gemfile": true, "Rakefile": true, "Procfile": true, "Vagrantfile": true,
	"LICENSE": true, "README": true, "CODEOWNERS": true,
}

// PathResolver derives safe target paths for blocks below a root directory.
type PathResolver struct {
	root     string
	patterns *parser.Patterns
	log      *slog.Logger
}

// NewPathResolver creates a resolver rooted at dir, which is made absolute.
func NewPathResolver(dir string, patterns *parser.Patterns, log *slog.Logger) (*PathResolver, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve root directory %q: %w", dir, err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PathResolver{root: abs, patterns: patterns, log: log}, nil
}

// Root returns the absolute root directory.
func (r *PathResolver) Root() string {
	return r.root
}

// Resolve finds the target path of block. The unified-diff "+++" header is
// preferred, then the first line of the block, then the block's hint.
func (r *PathResolver) Resolve(block model.CandidateBlock) (Resolution, error) {
	lines := strings.Split(block.Text, "\n")

	raw, source, pathLine, forcedNew, err := r.candidate(lines, block.Hint)
	if err != nil {
		return Resolution{}, err
	}

	clean, rewritten := Sanitize(raw)
	if clean == "" {
		return Resolution{}, fmt.Errorf("%w: unusable path %q", model.ErrInvalidFormat, raw)
	}
	if rewritten {
		r.log.Warn("path rewritten to base name", "path", raw, "resolved", clean)
	}

	res := Resolution{
		Path:      clean,
		Rewritten: rewritten,
		Source:    source,
		PathLine:  pathLine,
	}

	switch {
	case r.isRegular(clean):
		res.Exists = true
	case r.isRegular(filepath.Base(clean)):
		res.Path = filepath.Base(clean)
		res.Exists = true
	default:
		res.IsNew = true
	}
	if forcedNew {
		res.IsNew = true
	}
	return res, nil
}

func (r *PathResolver) candidate(lines []string, hint string) (raw string, source PathSource, pathLine int, forcedNew bool, err error) {
	oldPath, newPath, ok := r.fileHeaders(lines)
	if ok {
		forcedNew = oldPath == devNull
		switch {
		case newPath == devNull:
			return "", "", -1, false, fmt.Errorf("%w: file deletion is not supported", model.ErrInvalidFormat)
		case newPath != "":
			return newPath, SourceHeader, -1, forcedNew, nil
		case oldPath != "" && oldPath != devNull:
			return oldPath, SourceHeader, -1, false, nil
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" || r.patterns.FileHeader.MatchString(line) {
			continue
		}
		if p := stripMarkers(line); r.isPathLike(p) {
			return p, SourceFirstLine, i, forcedNew, nil
		}
		break
	}

	if p := r.fromHint(hint); p != "" {
		return p, SourceHint, -1, forcedNew, nil
	}
	return "", "", -1, false, model.ErrNoPath
}

// fileHeaders returns the paths of the "---" and "+++" header lines.
func (r *PathResolver) fileHeaders(lines []string) (oldPath, newPath string, ok bool) {
	for _, line := range lines {
		if r.patterns.HunkHeader.MatchString(line) {
			break
		}
		m := r.patterns.FileHeader.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p := headerPath(m[1])
		if strings.HasPrefix(line, "+++") {
			newPath, ok = p, true
		} else if oldPath == "" {
			oldPath, ok = p, true
		}
	}
	return oldPath, newPath, ok
}

// headerPath strips timestamps and the a/, b/ and ./ prefixes.
func headerPath(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == devNull {
		return s
	}
	for {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(s, "a/"), "b/"), "./")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func (r *PathResolver) fromHint(hint string) string {
	if hint == "" {
		return ""
	}
	if m := r.patterns.BacktickPath.FindStringSubmatch(hint); m != nil {
		if p := strings.TrimSpace(m[1]); r.isPathLike(p) {
			return p
		}
	}
	if p := stripMarkers(hint); r.isPathLike(p) {
		return p
	}
	return ""
}

func (r *PathResolver) isPathLike(p string) bool {
	if p == "" || strings.ContainsAny(p, " \t") {
		return false
	}
	if parser.LooksLikePath(r.patterns, p) || knownNames[p] {
		return true
	}
	return false
}

// stripMarkers removes diff, comment and markdown decoration around a path.
func stripMarkers(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "+-")
	s = strings.TrimSpace(s)
	for _, marker := range []string{"// ", "/* ", "* ", "# ", "-- "} {
		s = strings.TrimPrefix(s, marker)
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "*/"))
	s = strings.TrimSuffix(s, ":")
	s = strings.Trim(s, "`*\"'")
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}

// Sanitize makes p safe to join with the root. A path that is absolute,
// starts with a separator, has a volume name or contains a ".." component
// is reduced to its base name, and rewritten is true. An empty result means
// no usable path remains.
func Sanitize(p string) (clean string, rewritten bool) {
	s := strings.TrimSpace(p)
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' })

	unsafe := filepath.IsAbs(s) ||
		strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, `\`) ||
		hasVolume(s)
	for _, part := range parts {
		if part == ".." {
			unsafe = true
			break
		}
	}

	if unsafe {
		if len(parts) == 0 {
			return "", true
		}
		base := parts[len(parts)-1]
		if hasVolume(base) {
			base = base[2:]
		}
		if base == "" || base == "." || base == ".." {
			return "", true
		}
		return base, true
	}

	kept := parts[:0]
	for _, part := range parts {
		if part != "." {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return filepath.Join(kept...), false
}

func hasVolume(s string) bool {
	if len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func (r *PathResolver) isRegular(rel string) bool {
	info, err := os.Stat(filepath.Join(r.root, rel))
	return err == nil && info.Mode().IsRegular()
}

// ReadSnapshot reads the current content of rel below the root.
func (r *PathResolver) ReadSnapshot(rel string) (string, error) {
	root, err := os.OpenRoot(r.root)
	if err != nil {
		return "", fmt.Errorf("could not open root %s: %w", r.root, err)
	}
	defer root.Close()

	data, err := root.ReadFile(rel)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", model.ErrFileNotFound, rel)
		}
		return "", fmt.Errorf("%w: %s: %v", model.ErrFileNotFound, rel, err)
	}
	return string(data), nil
}
