package types

import "time"

const (
	StatusNotStarted = "not_started"
	StatusReading    = "reading"
	StatusFinished   = "finished"
)

// ValidStatus reports whether s is one of the fixed reading statuses.
// The store does not validate status, callers must.
func ValidStatus(s string) bool {
	switch s {
	case StatusNotStarted, StatusReading, StatusFinished:
		return true
	}

	return false
}

type Link struct {
	Title string `json:"title"`
	Url   string `json:"url"`
}

// Book is a saved library row. A Book row exists in the store if and only if
// the user explicitly added the book.
type Book struct {
	Id              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	CoverEditionKey string    `json:"cover_edition_key"`
	PublishYear     string    `json:"publish_year"`
	Description     string    `json:"description"`
	Links           []Link    `json:"links"`
	Status          string    `json:"status"`
	LastAccessedAt  time.Time `json:"last_accessed_at"`
}

type Review struct {
	BookId    string    `json:"book_id"`
	Rating    int16     `json:"rating"`
	Content   string    `json:"content"`
	DateAdded time.Time `json:"date_added"`
}
