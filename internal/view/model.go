// Package view builds the request-scoped display models consumed by the
// templates. A model is a pure merge of one catalog search doc, one work
// detail and zero-or-one stored book/review pair; it owns nothing and is
// never persisted.
package view

import (
	"strconv"
	"strings"

	"bookshelf/internal/openlibrary"
	"bookshelf/internal/types"
)

const (
	UnknownAuthor = "Unknown"
	NoPublishYear = "N/A"
	NoDescription = "No description available."
)

type Book struct {
	Olid            string        `json:"olid"`
	Title           string        `json:"title"`
	Author          string        `json:"author"`
	PublishYear     string        `json:"publish_year"`
	CoverEditionKey string        `json:"cover_edition_key"`
	Description     string        `json:"description"`
	Links           []types.Link  `json:"links"`
	InMyList        bool          `json:"inMyList"`
	Status          string        `json:"status"`
	Review          *types.Review `json:"review"`
}

// FromCatalog merges a search doc, a work detail and the stored book/review
// pair into one display-ready record. Work, saved and review may each be nil;
// every optional field has a defined default and the merge never panics.
func FromCatalog(doc *openlibrary.Doc, work *openlibrary.Work, saved *types.Book, review *types.Review) *Book {
	b := &Book{
		Olid:            openlibrary.TrimWorkKey(doc.Key),
		Title:           doc.Title,
		Author:          joinAuthors(doc.AuthorName),
		PublishYear:     yearOrDefault(doc.FirstPublishYear),
		CoverEditionKey: doc.CoverEditionKey,
		Description:     NoDescription,
		Links:           make([]types.Link, 0),
		Status:          types.StatusNotStarted,
	}

	if work != nil {
		b.Description = describe(work.Description)
		for _, link := range work.Links {
			b.Links = append(b.Links, types.Link{Title: link.Title, Url: link.Url})
		}
	}

	if saved != nil {
		b.InMyList = true
		b.Status = saved.Status
		b.Review = review
	}

	return b
}

// IntoBook converts a merged record into the row shape the store persists.
func (b *Book) IntoBook(status string) *types.Book {
	return &types.Book{
		Id:              b.Olid,
		Title:           b.Title,
		Author:          b.Author,
		CoverEditionKey: b.CoverEditionKey,
		PublishYear:     b.PublishYear,
		Description:     b.Description,
		Links:           b.Links,
		Status:          status,
	}
}

// SearchHit is the lightweight shape for catalog search results: no detail
// fetch, no store lookup.
type SearchHit struct {
	Olid            string `json:"olid"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublishYear     string `json:"publish_year"`
	CoverEditionKey string `json:"cover_edition_key"`
}

func SearchHits(docs []openlibrary.Doc) []SearchHit {
	hits := make([]SearchHit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, SearchHit{
			Olid:            openlibrary.TrimWorkKey(doc.Key),
			Title:           doc.Title,
			Author:          joinAuthors(doc.AuthorName),
			PublishYear:     yearOrDefault(doc.FirstPublishYear),
			CoverEditionKey: doc.CoverEditionKey,
		})
	}

	return hits
}

func joinAuthors(names []string) string {
	if len(names) == 0 {
		return UnknownAuthor
	}

	return strings.Join(names, ", ")
}

func yearOrDefault(year int) string {
	if year == 0 {
		return NoPublishYear
	}

	return strconv.Itoa(year)
}

// describe resolves the three upstream description shapes: an object carrying
// a "value" field, a plain string, or nothing at all. An object without a
// usable "value" also falls back to the default.
func describe(d any) string {
	switch v := d.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if s, ok := v["value"].(string); ok && s != "" {
			return s
		}
	}

	return NoDescription
}
