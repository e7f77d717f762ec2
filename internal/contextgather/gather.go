package contextgather

import (
	"bytes"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// TruncatedNote ends a context that hit the total size limit.
const TruncatedNote = "Note: Context truncated due to size limits\n"

const binaryCheckSize = 8192

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	".vscode":      true,
	".idea":        true,
	".code-llm":    true,
}

// skipFiles are never included.
var skipFiles = map[string]bool{
	".DS_Store":  true,
	".gitignore": true,
}

var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true, ".svg": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// Gatherer collects the text files below a directory into one prompt section.
type Gatherer struct {
	root     string
	maxFile  int64
	maxTotal int
}

// New creates a Gatherer. Limits are in KiB.
func New(root string, maxFileKB, maxTotalKB int) *Gatherer {
	return &Gatherer{root: root, maxFile: int64(maxFileKB) * 1024, maxTotal: maxTotalKB * 1024}
}

// Gather returns "--- <path>\n<content>\n" for every included file in walk
// order. When the next entry would exceed the total limit, TruncatedNote is
// appended and the walk stops.
func (g *Gatherer) Gather() (string, error) {
	rules := ignoreRules{}

	var b strings.Builder
	err := filepath.WalkDir(g.root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are left out.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(g.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && (skipDirs[d.Name()] || rules.ignored(rel+"/")) {
				return filepath.SkipDir
			}
			rules.load(p, rel)
			return nil
		}
		if !d.Type().IsRegular() || skipFiles[d.Name()] || binaryExts[strings.ToLower(path.Ext(rel))] || rules.ignored(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > g.maxFile {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if bytes.IndexByte(content[:min(len(content), binaryCheckSize)], 0) >= 0 {
			return nil
		}

		entry := fmt.Sprintf("--- %s\n%s\n", rel, content)
		if b.Len()+len(entry) > g.maxTotal {
			b.WriteString(TruncatedNote)
			return filepath.SkipAll
		}
		b.WriteString(entry)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to collect context from %s: %w", g.root, err)
	}
	return b.String(), nil
}

// ignoreRules holds the compiled .gitignore of every visited directory,
// keyed by its slash path relative to the root ("." for the root).
type ignoreRules map[string]*ignore.GitIgnore

func (r ignoreRules) load(dir, rel string) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return
	}
	r[rel] = gi
}

// ignored reports whether rel is matched by the .gitignore of the root or of
// any directory above it, relative to that directory. Directories are passed
// with a trailing slash so that directory-only patterns apply.
func (r ignoreRules) ignored(rel string) bool {
	for dir, gi := range r {
		sub := rel
		if dir != "." {
			var ok bool
			if sub, ok = strings.CutPrefix(rel, dir+"/"); !ok {
				continue
			}
		}
		if gi.MatchesPath(sub) {
			return true
		}
	}
	return false
}
