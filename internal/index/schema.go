package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names of an indexed document. The document id is the path.
const (
	fieldPath         = "path"
	fieldName         = "name"
	fieldContent      = "content"
	fieldModifiedTime = "modified_time"
)

// searchAnalyzer tokenizes every text field and the live file content used
// for snippets, so query terms and snippet tokens agree.
const searchAnalyzer = standard.Name

// Document is one indexed article.
type Document struct {
	// Path is the normalized relative path without extension, e.g. "ns/title".
	Path string
	// Name is the title only.
	Name string
	// Content is the full text read at index time. It is not stored.
	Content string
	// ModifiedTime is the file mtime at index time, in fractional Unix seconds.
	ModifiedTime float64
}

func (d Document) fields() map[string]interface{} {
	return map[string]interface{}{
		fieldPath:         d.Path,
		fieldName:         d.Name,
		fieldContent:      d.Content,
		fieldModifiedTime: d.ModifiedTime,
	}
}

func newMapping() *mapping.IndexMappingImpl {
	path := bleve.NewTextFieldMapping()
	path.Analyzer = searchAnalyzer
	path.Store = true
	path.IncludeTermVectors = false

	name := bleve.NewTextFieldMapping()
	name.Analyzer = searchAnalyzer
	name.Store = true

	content := bleve.NewTextFieldMapping()
	content.Analyzer = searchAnalyzer
	content.Store = false
	content.IncludeTermVectors = true

	modified := bleve.NewNumericFieldMapping()
	modified.Store = true

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false
	doc.AddFieldMappingsAt(fieldPath, path)
	doc.AddFieldMappingsAt(fieldName, name)
	doc.AddFieldMappingsAt(fieldContent, content)
	doc.AddFieldMappingsAt(fieldModifiedTime, modified)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = searchAnalyzer
	return m
}
