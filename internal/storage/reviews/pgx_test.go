package reviews

import (
	"strings"
	"testing"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"bookshelf/internal/types"
)

func newSQLRepo() *pgxRepo {
	return &pgxRepo{g: goqu.Dialect("postgres")}
}

func TestSaveSQLUpserts(t *testing.T) {
	sql, _, err := newSQLRepo().saveSQL(&types.Review{
		BookId:  "OL1234W",
		Rating:  5,
		Content: "Great",
	})
	if err != nil {
		t.Fatalf("saveSQL failed: %v", err)
	}

	for _, want := range []string{
		`INSERT INTO "book_reviews"`,
		`ON CONFLICT`,
		`DO UPDATE`,
		`excluded.rating`,
		`excluded.content`,
		`excluded.date_added`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected SQL to contain %q, got: %s", want, sql)
		}
	}
}

func TestGetByBookIdSQL(t *testing.T) {
	sql, _, err := newSQLRepo().getByBookIdSQL("OL1W")
	if err != nil {
		t.Fatalf("getByBookIdSQL failed: %v", err)
	}

	for _, want := range []string{`FROM "book_reviews"`, `'OL1W'`} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected SQL to contain %q, got: %s", want, sql)
		}
	}
}

func TestDeleteSQL(t *testing.T) {
	sql, _, err := newSQLRepo().deleteSQL("OL1W")
	if err != nil {
		t.Fatalf("deleteSQL failed: %v", err)
	}

	for _, want := range []string{`DELETE FROM "book_reviews"`, `'OL1W'`} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected SQL to contain %q, got: %s", want, sql)
		}
	}
}
