package books

import (
	"context"

	"bookshelf/internal/types"
)

// WithReview is a book row optionally joined with its review.
type WithReview struct {
	Book   *types.Book
	Review *types.Review
}

type Repository interface {
	// GetById returns nil without error when no row exists.
	GetById(ctx context.Context, id string) (*types.Book, error)
	// GetStatus returns "" without error when no row exists.
	GetStatus(ctx context.Context, id string) (string, error)

	// List returns books left-joined with reviews, most recently accessed
	// first. Non-positive limit means no cap.
	List(ctx context.Context, limit int) ([]WithReview, error)

	// Save inserts the book, doing nothing when the id is already present so
	// that user edits like status survive a re-add.
	Save(ctx context.Context, book *types.Book) error

	// SetStatus updates status and last_accessed_at, reporting whether a row
	// was affected.
	SetStatus(ctx context.Context, id, status string) (bool, error)

	// Delete is idempotent. The review row goes with the book via the
	// database-level cascade.
	Delete(ctx context.Context, id string) error
}
