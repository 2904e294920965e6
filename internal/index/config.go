package index

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/storage"
)

// Configuration is built once at startup and shared by the index store,
// the synchronizer and the watcher.
type Configuration struct {
	// Root is the absolute article root.
	Root string
	// Folder is the reserved index folder name inside Root.
	Folder string
	// MinTermLength is the shortest accepted search term, in characters.
	MinTermLength int
	// MaxResults caps the number of hits returned by Search.
	MaxResults int
	// FragmentSize is the snippet window, in bytes, around matches.
	FragmentSize int
	// MaxFragments is the number of windows joined into one snippet.
	MaxFragments int
	// Fuzziness is the edit distance used for fuzzy term matching.
	Fuzziness int
	// LockTimeout bounds how long opening the index waits for another process.
	LockTimeout time.Duration
}

// Defaults.
const (
	DefaultMinTermLength = 3
	DefaultMaxResults    = 100
	DefaultFragmentSize  = 300
	DefaultMaxFragments  = 3
	DefaultFuzziness     = 1
	DefaultLockTimeout   = 5 * time.Second
)

// DefaultConfiguration returns the configuration used when nothing is overridden.
func DefaultConfiguration(root string) *Configuration {
	return &Configuration{
		Root:          root,
		Folder:        storage.IndexFolder,
		MinTermLength: DefaultMinTermLength,
		MaxResults:    DefaultMaxResults,
		FragmentSize:  DefaultFragmentSize,
		MaxFragments:  DefaultMaxFragments,
		Fuzziness:     DefaultFuzziness,
		LockTimeout:   DefaultLockTimeout,
	}
}

// Dir returns the absolute index directory.
func (c *Configuration) Dir() string {
	return filepath.Join(c.Root, c.Folder)
}

// CheckTerm trims term and rejects it with apperr.ErrInvalidQuery when it is
// shorter than MinTermLength characters.
func (c *Configuration) CheckTerm(term string) (string, error) {
	term = strings.TrimSpace(term)
	if n := utf8.RuneCountInString(term); n < c.MinTermLength {
		return "", fmt.Errorf("index: search %q: %w: need at least %d characters, got %d",
			term, apperr.ErrInvalidQuery, c.MinTermLength, n)
	}
	return term, nil
}
