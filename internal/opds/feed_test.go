package opds

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/storage/books"
	"bookshelf/internal/types"
)

func TestFromLibrary(t *testing.T) {
	rows := []books.WithReview{
		{
			Book: &types.Book{
				Id:          "OL1234W",
				Title:       "Dune",
				Author:      "Frank Herbert",
				PublishYear: "1965",
				Description: "A desert planet saga.",
				Status:      types.StatusReading,
			},
			Review: &types.Review{BookId: "OL1234W", Rating: 5},
		},
		{
			Book: &types.Book{
				Id:          "OL2W",
				Title:       "Untitled",
				Author:      "Unknown",
				PublishYear: "N/A",
				Status:      types.StatusNotStarted,
			},
		},
	}

	feed := FromLibrary(rows)

	require.Len(t, feed.Entries, 2)
	require.Len(t, feed.Links, 1)
	assert.Equal(t, "self", feed.Links[0].Rel)

	first := feed.Entries[0]
	assert.Equal(t, "tag:book:OL1234W", first.ID)
	assert.Equal(t, "Dune", first.Title)
	assert.Equal(t, "1965", first.Issued)
	require.Len(t, first.Author, 1)
	assert.Equal(t, "Frank Herbert", first.Author[0].Name)
	require.Len(t, first.Category, 2)
	assert.Equal(t, types.StatusReading, first.Category[0].Term)
	assert.Equal(t, "rating:5", first.Category[1].Term)

	second := feed.Entries[1]
	assert.Empty(t, second.Issued) // N/A year stays out of the feed
	require.Len(t, second.Category, 1)
}

func TestFromLibraryMarshals(t *testing.T) {
	feed := FromLibrary([]books.WithReview{
		{Book: &types.Book{Id: "OL1W", Title: "X", Status: types.StatusNotStarted}},
	})

	bs, err := xml.Marshal(feed)
	require.NoError(t, err)
	assert.Contains(t, string(bs), "tag:book:OL1W")
}
