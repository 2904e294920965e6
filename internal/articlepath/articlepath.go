// Package articlepath maps between logical article paths, on-disk paths and
// URL routes. Every function here is pure.
package articlepath

import (
	"path/filepath"
	"strings"

	"github.com/starford/bock/internal/models"
)

// Extension is the Markdown extension of every article file.
const Extension = ".md"

// RelativeFilePath returns "ns1/ns2/title.md".
func RelativeFilePath(p models.ArticlePath) string {
	return p.String() + Extension
}

// FromRelativeFilePath strips root (when present), a single leading separator
// and the extension from path.
func FromRelativeFilePath(path, root string) models.ArticlePath {
	path = filepath.ToSlash(path)
	if root != "" {
		root = strings.TrimSuffix(filepath.ToSlash(root), "/")
		path = strings.TrimPrefix(path, root)
	}
	path = strings.TrimPrefix(path, "/")
	return Parse(stripExtension(path))
}

// Parse splits a normalized "ns1/ns2/title" string into an ArticlePath.
func Parse(logical string) models.ArticlePath {
	logical = strings.Trim(filepath.ToSlash(logical), "/")
	ns := Namespace(logical)
	p := models.ArticlePath{Title: Title(logical)}
	if ns != "" {
		p.Namespace = strings.Split(ns, "/")
	}
	return p
}

// Namespace returns everything before the last separator, or "" if there is none.
func Namespace(path string) string {
	path = filepath.ToSlash(path)
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Title returns everything after the last separator. A trailing Markdown
// extension is removed regardless of case.
func Title(path string) string {
	path = filepath.ToSlash(path)
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return stripExtension(path)
}

// ToRoute converts the display form to the route-safe form.
func ToRoute(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// FromRoute converts a route segment back to the display form.
func FromRoute(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// ParseRoute resolves a URL route like "Tech_Notes/Linux_Tips" to an ArticlePath.
func ParseRoute(route string) models.ArticlePath {
	return Parse(FromRoute(route))
}

// Route returns the route-safe form of p.
func Route(p models.ArticlePath) string {
	return ToRoute(p.String())
}

func stripExtension(name string) string {
	if len(name) >= len(Extension) && strings.EqualFold(name[len(name)-len(Extension):], Extension) {
		return name[:len(name)-len(Extension)]
	}
	return name
}
