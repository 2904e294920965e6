// Package models defines the domain types for Bock.
package models

import (
	"strings"
	"time"
)

// ArticlePath is the logical identifier of an article: the folders it lives
// in plus its title, without the Markdown extension.
type ArticlePath struct {
	Namespace []string `json:"namespace"`
	Title     string   `json:"title"`
}

// String returns the normalized form "ns1/ns2/title".
func (p ArticlePath) String() string {
	if len(p.Namespace) == 0 {
		return p.Title
	}
	return strings.Join(p.Namespace, "/") + "/" + p.Title
}

// Equal reports whether both paths normalize to the same string.
func (p ArticlePath) Equal(o ArticlePath) bool {
	return p.String() == o.String()
}

// Entry kinds for HierarchyEntry.
const (
	EntryFolder = "folder"
	EntryFile   = "file"
)

// HierarchyEntry is one breadcrumb segment from the wiki root to a file or folder.
type HierarchyEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Route is the underscore form of the path up to and including this segment.
	Route string `json:"route"`
}

// Revision is a read-only view over one commit that touched an article.
type Revision struct {
	ID                 string    `json:"id"`
	Message            string    `json:"message"`
	Author             string    `json:"author"`
	Email              string    `json:"email"`
	Committed          time.Time `json:"committed"`
	CommittedHumanized string    `json:"committed_humanized"`
	// Content is resolved lazily and only set by single-revision reads.
	Content string `json:"content,omitempty"`
	// FromWorkingTree is set when the blob was missing from the commit tree
	// and Content holds the current on-disk text instead.
	FromWorkingTree bool `json:"from_working_tree,omitempty"`
}

// ShortID returns the abbreviated revision id used in diff headers and listings.
func (r Revision) ShortID() string {
	if len(r.ID) <= ShortIDLength {
		return r.ID
	}
	return r.ID[:ShortIDLength]
}

// ShortIDLength is the display length of abbreviated commit ids.
const ShortIDLength = 8

// ArticleSummary is a lightweight listing item.
type ArticleSummary struct {
	Path     string    `json:"path"`
	Route    string    `json:"route"`
	Title    string    `json:"title"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}
