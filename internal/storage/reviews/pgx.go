package reviews

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookshelf/internal/types"
)

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxReview struct {
	BookId    string    `db:"book_id"`
	Rating    int16     `db:"rating"`
	Content   string    `db:"content"`
	DateAdded time.Time `db:"date_added"`
}

func (r *pgxReview) intoCommon() *types.Review {
	return &types.Review{
		BookId:    r.BookId,
		Rating:    r.Rating,
		Content:   r.Content,
		DateAdded: r.DateAdded,
	}
}

func (p *pgxRepo) getByBookIdSQL(bookId string) (string, []any, error) {
	return p.g.From("book_reviews").
		Where(goqu.C("book_id").Eq(bookId)).
		ToSQL()
}

func (p *pgxRepo) GetByBookId(ctx context.Context, bookId string) (*types.Review, error) {
	sql, params, err := p.getByBookIdSQL(bookId)
	if err != nil {
		return nil, err
	}

	var row pgxReview

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) saveSQL(review *types.Review) (string, []any, error) {
	dateAdded := review.DateAdded
	if dateAdded.IsZero() {
		dateAdded = time.Now()
	}

	return p.g.Insert("book_reviews").
		Rows(pgxReview{
			BookId:    review.BookId,
			Rating:    review.Rating,
			Content:   review.Content,
			DateAdded: dateAdded,
		}).
		OnConflict(goqu.DoUpdate("book_id", map[string]any{
			"rating":     goqu.L("excluded.rating"),
			"content":    goqu.L("excluded.content"),
			"date_added": goqu.L("excluded.date_added"),
		})).
		ToSQL()
}

func (p *pgxRepo) Save(ctx context.Context, review *types.Review) error {
	sql, params, err := p.saveSQL(review)
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) deleteSQL(bookId string) (string, []any, error) {
	return p.g.Delete("book_reviews").
		Where(goqu.C("book_id").Eq(bookId)).
		ToSQL()
}

func (p *pgxRepo) Delete(ctx context.Context, bookId string) error {
	sql, params, err := p.deleteSQL(bookId)
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
