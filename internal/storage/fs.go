package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/models"
)

// DefaultMaxDepth is the number of folder levels below root that are scanned.
const DefaultMaxDepth = 3

// FS implements Provider backed by the local file system.
type FS struct {
	root     string // absolute path to the article root
	maxDepth int
	reserved map[string]struct{}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist. Extra reserved folder names (for example
// a relocated index folder) are hidden in addition to the built-in deny-list.
func NewFS(root string, maxDepth int, reserved ...string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	f := &FS{root: abs, maxDepth: maxDepth, reserved: make(map[string]struct{}, len(reserved))}
	for _, name := range reserved {
		f.reserved[name] = struct{}{}
	}
	return f, nil
}

// Root returns the absolute article root.
func (f *FS) Root() string { return f.root }

// MaxDepth returns the folder depth bound.
func (f *FS) MaxDepth() int { return f.maxDepth }

func (f *FS) hidden(name string) bool {
	if Ignored(name) {
		return true
	}
	_, ok := f.reserved[name]
	return ok
}

// depth returns the number of folder levels between root and dir.
func (f *FS) depth(dir string) int {
	rel, err := filepath.Rel(f.root, dir)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// safePath resolves a relative path against the article root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes wiki root: %s", rel)
	}
	return abs, nil
}

// ListArticles walks the tree and returns every visible Markdown file.
// Entries that vanish mid-walk are skipped.
func (f *FS) ListArticles() ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == f.root {
				return walkErr
			}
			return nil
		}
		if p == f.root {
			return nil
		}
		if f.hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if f.depth(p) > f.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), articlepath.Extension) {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list articles: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// Visible reports whether the file at path (relative to root) is inside the
// scanned tree: no hidden or reserved segment and within the depth bound.
func (f *FS) Visible(path string) bool {
	rel := strings.Trim(filepath.ToSlash(filepath.Clean(filepath.FromSlash(path))), "/")
	if rel == "" || rel == "." {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		if seg == ".." || f.hidden(seg) {
			return false
		}
	}
	return len(segments)-1 <= f.maxDepth
}

// Read returns the raw bytes of a file under root.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Stat returns file info for a path under root.
func (f *FS) Stat(path string) (fs.FileInfo, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info, nil
}

// Hierarchy returns a ROOT folder entry followed by one entry per segment of
// logical. The last segment is a file when an article exists at that path.
func (f *FS) Hierarchy(logical string) []models.HierarchyEntry {
	out := []models.HierarchyEntry{{Name: "ROOT", Type: models.EntryFolder, Route: ""}}
	logical = strings.Trim(filepath.ToSlash(logical), "/")
	if logical == "" {
		return out
	}
	segments := strings.Split(logical, "/")
	for i, seg := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		kind := models.EntryFolder
		if i == len(segments)-1 {
			if info, err := f.Stat(prefix + articlepath.Extension); err == nil && !info.IsDir() {
				kind = models.EntryFile
			}
		}
		out = append(out, models.HierarchyEntry{
			Name:  seg,
			Type:  kind,
			Route: articlepath.ToRoute(prefix),
		})
	}
	return out
}

// ListFolder returns the visible sub-folders and articles of a folder.
// Folders beyond the depth bound are reported as not existing.
func (f *FS) ListFolder(path string) (*Folder, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	if f.depth(abs) > f.maxDepth {
		return nil, fmt.Errorf("storage: list %s: %w", path, fs.ErrNotExist)
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg != "" && f.hidden(seg) {
			return nil, fmt.Errorf("storage: list %s: %w", path, fs.ErrNotExist)
		}
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", path, err)
	}

	rel := strings.Trim(filepath.ToSlash(path), "/")
	folder := &Folder{Path: rel, Folders: []string{}, Articles: []string{}}
	childDepth := f.depth(abs) + 1
	for _, e := range entries {
		name := e.Name()
		if f.hidden(name) {
			continue
		}
		child := name
		if rel != "" {
			child = rel + "/" + name
		}
		switch {
		case e.IsDir():
			if childDepth <= f.maxDepth {
				folder.Folders = append(folder.Folders, child)
			}
		case strings.HasSuffix(name, articlepath.Extension):
			folder.Articles = append(folder.Articles, strings.TrimSuffix(child, articlepath.Extension))
		}
	}
	sort.Strings(folder.Folders)
	sort.Strings(folder.Articles)
	return folder, nil
}

// IsNotExist reports whether err means the path does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
