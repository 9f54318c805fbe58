package reviews

import (
	"context"

	"bookshelf/internal/types"
)

type Repository interface {
	// GetByBookId returns nil without error when no row exists.
	GetByBookId(ctx context.Context, bookId string) (*types.Review, error)

	// Save upserts on book_id in a single statement: insert when absent,
	// otherwise the new rating, content and date win.
	Save(ctx context.Context, review *types.Review) error

	// Delete is idempotent.
	Delete(ctx context.Context, bookId string) error
}
