package index

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bock/internal/apperr"
)

func TestSearchTermFloor(t *testing.T) {
	_, _, idx := testIndex(t)

	_, err := idx.Search("ab")
	assert.ErrorIs(t, err, apperr.ErrInvalidQuery)

	_, err = idx.Search("  ab  ")
	assert.ErrorIs(t, err, apperr.ErrInvalidQuery)

	res, err := idx.Search("abc")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Nil(t, res.Results)
}

func TestSearchEditScenario(t *testing.T) {
	root, store, idx := testIndex(t)
	writeArticle(t, root, "a.md", "hello world")

	_, err := Sync(idx, store, testLogger())
	require.NoError(t, err)

	res, err := idx.Search("hello")
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "a", res.Results[0].Path)
	assert.Equal(t, "a", res.Results[0].Name)
	assert.Equal(t, "hello", res.Query)
	before := res.Results[0].ContentMatches
	assert.Contains(t, before, "<mark>hello</mark>")
	assert.Contains(t, before, "world")

	writeArticle(t, root, "a.md", "hello mars")
	touch(t, root, "a.md", 2*time.Second)
	stats, err := Sync(idx, store, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	res, err = idx.Search("hello")
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.NotEqual(t, before, res.Results[0].ContentMatches)
	assert.Contains(t, res.Results[0].ContentMatches, "mars")

	res, err = idx.Search("world")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}

func TestSearchAfterDeletion(t *testing.T) {
	root, store, idx := testIndex(t)
	writeArticle(t, root, "doomed.md", "xylophone quartet")
	writeArticle(t, root, "other.md", "unrelated")
	_, err := Sync(idx, store, testLogger())
	require.NoError(t, err)

	res, err := idx.Search("xylophone")
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	removeArticle(t, root, "doomed.md")
	_, err = Sync(idx, store, testLogger())
	require.NoError(t, err)

	res, err = idx.Search("xylophone")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}

func TestSearchMatchModes(t *testing.T) {
	root, store, idx := testIndex(t)
	writeArticle(t, root, "Kubernetes.md", "container orchestration notes")
	writeArticle(t, root, "tools/shell.md", "use grep and awk for text processing")
	_, err := Sync(idx, store, testLogger())
	require.NoError(t, err)

	tests := []struct {
		term string
		want string
	}{
		{"orchestration", "Kubernetes"}, // exact content
		{"orchestraton", "Kubernetes"},  // fuzzy, one edit away
		{"chestra", "Kubernetes"},       // substring
		{"kubernetes", "Kubernetes"},    // name
		{"proc*ing", "tools/shell"},     // explicit wildcard
		{"tools", "tools/shell"},        // path
		{"grep awk", "tools/shell"},     // every word must match
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			res, err := idx.Search(tt.term)
			require.NoError(t, err)
			require.Equal(t, 1, res.Count, "results: %+v", res.Results)
			assert.Equal(t, tt.want, res.Results[0].Path)
		})
	}

	res, err := idx.Search("grep orchestration")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}

func TestSearchNameOnlyMatchHasEmptySnippet(t *testing.T) {
	root, store, idx := testIndex(t)
	writeArticle(t, root, "Zettelkasten.md", "a note taking method")
	_, err := Sync(idx, store, testLogger())
	require.NoError(t, err)

	res, err := idx.Search("zettelkasten")
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Empty(t, res.Results[0].ContentMatches)
}

func TestSearchSnippetUsesLiveFile(t *testing.T) {
	root, store, idx := testIndex(t)
	writeArticle(t, root, "a.md", "alpha beta")
	_, err := Sync(idx, store, testLogger())
	require.NoError(t, err)

	// Changed on disk, not yet synchronized.
	writeArticle(t, root, "a.md", "alpha gamma")

	res, err := idx.Search("alpha")
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Contains(t, res.Results[0].ContentMatches, "gamma")
	assert.NotContains(t, res.Results[0].ContentMatches, "beta")

	removeArticle(t, root, "a.md")
	res, err = idx.Search("alpha")
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Empty(t, res.Results[0].ContentMatches)
}

func TestSearchResultsCapped(t *testing.T) {
	root, store, idx := testIndex(t)
	idx.cfg.MaxResults = 2
	for i := 0; i < 5; i++ {
		writeArticle(t, root, fmt.Sprintf("note%d.md", i), "shared keyword here")
	}
	_, err := Sync(idx, store, testLogger())
	require.NoError(t, err)

	res, err := idx.Search("keyword")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Count)
	assert.Len(t, res.Results, 2)
	assert.GreaterOrEqual(t, res.RuntimeInMs, 0.0)
}
