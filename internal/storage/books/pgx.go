package books

import (
	"context"
	"encoding/json"
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

type pgxBook struct {
	Id              string       `db:"id"`
	Title           string       `db:"title"`
	Author          string       `db:"author"`
	CoverEditionKey string       `db:"cover_edition_key"`
	PublishYear     string       `db:"publish_year"`
	Description     string       `db:"description"`
	Links           []types.Link `db:"links"`
	Status          string       `db:"status"`
	LastAccessedAt  time.Time    `db:"last_accessed_at"`
}

type pgxBookWithReview struct {
	Base          pgxBook    `db:""` // follow
	ReviewRating  *int16     `db:"review_rating"`
	ReviewContent *string    `db:"review_content"`
	ReviewDate    *time.Time `db:"review_date_added"`
}

func (b *pgxBook) intoCommon() *types.Book {
	links := b.Links
	if links == nil {
		links = make([]types.Link, 0)
	}

	return &types.Book{
		Id:              b.Id,
		Title:           b.Title,
		Author:          b.Author,
		CoverEditionKey: b.CoverEditionKey,
		PublishYear:     b.PublishYear,
		Description:     b.Description,
		Links:           links,
		Status:          b.Status,
		LastAccessedAt:  b.LastAccessedAt,
	}
}

func (r *pgxBookWithReview) intoCommon() WithReview {
	ret := WithReview{Book: r.Base.intoCommon()}

	if r.ReviewRating != nil {
		review := &types.Review{
			BookId: r.Base.Id,
			Rating: *r.ReviewRating,
		}
		if r.ReviewContent != nil {
			review.Content = *r.ReviewContent
		}
		if r.ReviewDate != nil {
			review.DateAdded = *r.ReviewDate
		}
		ret.Review = review
	}

	return ret
}

func (p *pgxRepo) getByIdSQL(id string) (string, []any, error) {
	return p.g.From("book").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.Book, error) {
	sql, params, err := p.getByIdSQL(id)
	if err != nil {
		return nil, err
	}

	var row pgxBook

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) getStatusSQL(id string) (string, []any, error) {
	return p.g.From("book").
		Select(goqu.C("status")).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
}

func (p *pgxRepo) GetStatus(ctx context.Context, id string) (string, error) {
	sql, params, err := p.getStatusSQL(id)
	if err != nil {
		return "", err
	}

	var status string

	err = pgxscan.Get(ctx, p.pg, &status, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return "", err
	}

	return status, nil
}

func (p *pgxRepo) listSQL(limit int) (string, []any, error) {
	qb := p.g.From("book").
		Select("book.*",
			goqu.C("rating").Table("book_reviews").As("review_rating"),
			goqu.C("content").Table("book_reviews").As("review_content"),
			goqu.C("date_added").Table("book_reviews").As("review_date_added")).
		LeftJoin(goqu.T("book_reviews"), goqu.On(
			goqu.C("id").Table("book").
				Eq(goqu.C("book_id").Table("book_reviews")),
		)).
		Order(goqu.C("last_accessed_at").Table("book").Desc())

	if limit > 0 {
		qb = qb.Limit(uint(limit))
	}

	return qb.ToSQL()
}

func (p *pgxRepo) List(ctx context.Context, limit int) ([]WithReview, error) {
	sql, params, err := p.listSQL(limit)
	if err != nil {
		return nil, err
	}

	var rows []pgxBookWithReview

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]WithReview, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) saveSQL(book *types.Book) (string, []any, error) {
	links := book.Links
	if links == nil {
		links = make([]types.Link, 0)
	}

	// goqu cannot literalize a struct slice, so links travel as a
	// pre-marshalled jsonb literal. Scanning back into []types.Link is fine,
	// that side goes through the pgx jsonb codec.
	linksJson, err := json.Marshal(links)
	if err != nil {
		return "", nil, err
	}

	status := book.Status
	if status == "" {
		status = types.StatusNotStarted
	}

	return p.g.Insert("book").
		Rows(goqu.Record{
			"id":                book.Id,
			"title":             book.Title,
			"author":            book.Author,
			"cover_edition_key": book.CoverEditionKey,
			"publish_year":      book.PublishYear,
			"description":       book.Description,
			"links":             goqu.L("?::jsonb", string(linksJson)),
			"status":            status,
			"last_accessed_at":  time.Now(),
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
}

func (p *pgxRepo) Save(ctx context.Context, book *types.Book) error {
	sql, params, err := p.saveSQL(book)
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) setStatusSQL(id, status string) (string, []any, error) {
	return p.g.Update("book").
		Set(goqu.Record{
			"status":           status,
			"last_accessed_at": time.Now(),
		}).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
}

func (p *pgxRepo) SetStatus(ctx context.Context, id, status string) (bool, error) {
	sql, params, err := p.setStatusSQL(id, status)
	if err != nil {
		return false, err
	}

	tag, err := p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (p *pgxRepo) deleteSQL(id string) (string, []any, error) {
	return p.g.Delete("book").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
}

func (p *pgxRepo) Delete(ctx context.Context, id string) error {
	sql, params, err := p.deleteSQL(id)
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
