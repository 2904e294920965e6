package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/document"
	"github.com/blevesearch/bleve/v2/search"
	htmlformat "github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simplefragmenter "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehighlighter "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/articlepath"
)

// Highlight markup around matched terms in snippets.
const (
	highlightBefore   = "<mark>"
	highlightAfter    = "</mark>"
	fragmentSeparator = "…"
)

// SearchResult is a single hit.
type SearchResult struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	ContentMatches string `json:"content_matches"`
}

// SearchResults is the response to one query.
type SearchResults struct {
	Query       string         `json:"query"`
	Count       int            `json:"count"`
	Results     []SearchResult `json:"results"`
	RuntimeInMs float64        `json:"runtime_in_ms"`
}

// Search matches term against article names, contents and paths. Each word
// of term matches fuzzily, as a substring, or as a wildcard pattern when it
// contains * or ?. Snippets come from the live file, not the index.
func (i *Index) Search(term string) (*SearchResults, error) {
	term, err := i.cfg.CheckTerm(term)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bidx, err := i.openReader()
	if err != nil {
		return nil, fmt.Errorf("index: search: %w: %v", apperr.ErrIndexUnavailable, err)
	}
	defer bidx.Close()

	req := bleve.NewSearchRequestOptions(i.buildQuery(term), i.cfg.MaxResults, 0, false)
	req.Fields = []string{fieldName}
	req.IncludeLocations = true
	res, err := bidx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("index: search %q: %w", term, err)
	}

	analyzer := bidx.Mapping().AnalyzerNamed(searchAnalyzer)
	out := &SearchResults{Query: term, Count: int(res.Total)}
	for _, hit := range res.Hits {
		name, _ := hit.Fields[fieldName].(string)
		out.Results = append(out.Results, SearchResult{
			Name:           name,
			Path:           hit.ID,
			ContentMatches: i.snippet(analyzer, hit),
		})
	}
	out.RuntimeInMs = float64(time.Since(start).Microseconds()) / 1000
	return out, nil
}

// buildQuery requires every word of term to match at least one field.
func (i *Index) buildQuery(term string) query.Query {
	all := bleve.NewConjunctionQuery()
	for _, word := range strings.Fields(strings.ToLower(term)) {
		wildcard := strings.ContainsAny(word, "*?")
		pattern := word
		if !wildcard {
			pattern = "*" + word + "*"
		}

		alternatives := bleve.NewDisjunctionQuery()
		for _, field := range []string{fieldName, fieldContent, fieldPath} {
			wq := bleve.NewWildcardQuery(pattern)
			wq.SetField(field)
			alternatives.AddQuery(wq)

			if !wildcard {
				mq := bleve.NewMatchQuery(word)
				mq.SetField(field)
				mq.SetFuzziness(i.cfg.Fuzziness)
				alternatives.AddQuery(mq)
			}
		}
		all.AddQuery(alternatives)
	}
	return all
}

// snippet re-reads the article and highlights the terms that matched its
// content. Articles that vanished since indexing get an empty snippet.
func (i *Index) snippet(analyzer analysis.Analyzer, hit *search.DocumentMatch) string {
	matched := hit.Locations[fieldContent]
	if len(matched) == 0 || analyzer == nil {
		return ""
	}

	file := filepath.Join(i.cfg.Root, filepath.FromSlash(hit.ID)+articlepath.Extension)
	data, err := os.ReadFile(file)
	if err != nil {
		return ""
	}

	live := search.TermLocationMap{}
	for _, tok := range analyzer.Analyze(data) {
		term := string(tok.Term)
		if _, ok := matched[term]; !ok {
			continue
		}
		live[term] = append(live[term], &search.Location{
			Pos:   uint64(tok.Position),
			Start: uint64(tok.Start),
			End:   uint64(tok.End),
		})
	}
	if len(live) == 0 {
		return ""
	}

	dm := &search.DocumentMatch{
		ID:        hit.ID,
		Locations: search.FieldTermLocationMap{fieldContent: live},
	}
	doc := document.NewDocument(hit.ID)
	doc.AddField(document.NewTextField(fieldContent, nil, data))

	h := simplehighlighter.NewHighlighter(
		simplefragmenter.NewFragmenter(i.cfg.FragmentSize),
		htmlformat.NewFragmentFormatter(highlightBefore, highlightAfter),
		fragmentSeparator,
	)
	return strings.Join(h.BestFragmentsInField(dm, doc, fieldContent, i.cfg.MaxFragments), fragmentSeparator)
}
