package api

import (
	"github.com/starford/bock/internal/index"
	"github.com/starford/bock/internal/models"
	"github.com/starford/bock/internal/wiki"
)

// SearchResponse is the result of a search (aliased from the index layer).
type SearchResponse = index.SearchResults

// ArticleDetail is the full article response type (aliased from the domain layer).
type ArticleDetail = wiki.Article

// FolderDetail is a namespace listing (aliased from the domain layer).
type FolderDetail = wiki.Folder

// RevisionDetail is one rendered revision (aliased from the domain layer).
type RevisionDetail = wiki.RevisionView

// ArticleSummary is a lightweight item in a list response.
type ArticleSummary = models.ArticleSummary

// CompareResponse is the JSON form of a diff between two revisions.
type CompareResponse struct {
	Title string `json:"title"`
	Diff  string `json:"diff"`
}

// RefreshResponse lists the failures of a refresh; it is empty on success.
type RefreshResponse struct {
	Errors []string `json:"errors"`
}
