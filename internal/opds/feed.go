// Package opds exposes the saved library as an OPDS 1.x acquisition feed, so
// e-reader apps can browse the shelf.
package opds

import (
	"strconv"

	"github.com/opds-community/libopds2-go/opds1"

	"bookshelf/internal/storage/books"
	"bookshelf/internal/view"
)

const (
	linkTypeCatalog = "application/atom+xml;profile=opds-catalog"
	linkRelImage    = "http://opds-spec.org/image"

	bookIdTemplate = "tag:book:"
)

// FromLibrary builds the feed from the saved rows. Reviewed books carry their
// rating as a category term.
func FromLibrary(rows []books.WithReview) *opds1.Feed {
	feed := &opds1.Feed{
		Title: "My books",
		Links: []opds1.Link{{
			Rel:      "self",
			Href:     "/opds",
			TypeLink: linkTypeCatalog,
		}},
	}

	for _, row := range rows {
		entry := opds1.Entry{
			ID:    bookIdTemplate + row.Book.Id,
			Title: row.Book.Title,
			Author: []opds1.Author{{
				Name: row.Book.Author,
			}},
			Content: opds1.Content{
				Content: row.Book.Description,
			},
			Category: []opds1.Category{{
				Term: row.Book.Status,
			}},
			Links: []opds1.Link{{
				Rel:  linkRelImage,
				Href: "/covers/" + row.Book.Id,
			}},
		}

		if row.Book.PublishYear != view.NoPublishYear {
			entry.Issued = row.Book.PublishYear
		}

		if row.Review != nil {
			entry.Category = append(entry.Category, opds1.Category{
				Term: "rating:" + strconv.Itoa(int(row.Review.Rating)),
			})
		}

		feed.Entries = append(feed.Entries, entry)
	}

	return feed
}
