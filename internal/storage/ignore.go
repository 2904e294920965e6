package storage

import "strings"

// Reserved folder names inside the article root.
const (
	AssetsFolder = "__assets"
	IndexFolder  = "__bock_search_index"
)

// ignoredNames is matched against single path segments.
var ignoredNames = map[string]struct{}{
	// macOS
	".DS_Store":                           {},
	".AppleDouble":                        {},
	".LSOverride":                         {},
	"Icon\r":                              {},
	".DocumentRevisions-V100":             {},
	".fseventsd":                          {},
	".Spotlight-V100":                     {},
	".TemporaryItems":                     {},
	".Trashes":                            {},
	".VolumeIcon.icns":                    {},
	".com.apple.timemachine.donotpresent": {},
	".AppleDB":                            {},
	".AppleDesktop":                       {},
	"Network Trash Folder":                {},
	"Temporary Items":                     {},
	".apdisk":                             {},

	// Windows
	"Thumbs.db":         {},
	"ehthumbs.db":       {},
	"ehthumbs_vista.db": {},
	"Desktop.ini":       {},
	"desktop.ini":       {},
	"$RECYCLE.BIN":      {},

	// VCS and tooling
	".git":         {},
	".gitignore":   {},
	"node_modules": {},

	AssetsFolder: {},
	IndexFolder:  {},
}

// Ignored reports whether a single path segment is hidden from scanning.
// Dotfiles and dot-directories are always hidden.
func Ignored(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := ignoredNames[name]
	return ok
}
