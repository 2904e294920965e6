// Package storage defines the read-only view over the article tree.
package storage

import (
	"io/fs"

	"github.com/starford/bock/internal/models"
)

// Provider is the interface for article tree reads. Articles are edited
// out-of-band, so nothing here writes.
type Provider interface {
	// Root returns the absolute article root.
	Root() string
	// ListArticles returns the absolute paths of every visible Markdown file,
	// sorted lexicographically.
	ListArticles() ([]string, error)
	// Visible reports whether the file at path (relative to root) is one the
	// scan would return.
	Visible(path string) bool
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Stat returns file info for path (relative to root).
	Stat(path string) (fs.FileInfo, error)
	// Hierarchy returns the breadcrumb from root to the logical path.
	Hierarchy(logical string) []models.HierarchyEntry
	// ListFolder returns the visible children of the folder at path.
	ListFolder(path string) (*Folder, error)
}

// Folder is a one-level listing of a namespace.
type Folder struct {
	Path     string   `json:"path"`
	Folders  []string `json:"folders"`
	Articles []string `json:"articles"`
}
