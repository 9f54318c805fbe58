package server

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/openlibrary"
	"bookshelf/internal/response"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/types"
	"bookshelf/internal/view"
)

// fakeStore holds both relations so the book fake can mirror the
// database-level review cascade.
type fakeStore struct {
	books   map[string]*types.Book
	reviews map[string]*types.Review
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:   make(map[string]*types.Book),
		reviews: make(map[string]*types.Review),
	}
}

type fakeBooks struct{ s *fakeStore }

func (f *fakeBooks) GetById(_ context.Context, id string) (*types.Book, error) {
	b, ok := f.s.books[id]
	if !ok {
		return nil, nil
	}

	copied := *b
	return &copied, nil
}

func (f *fakeBooks) GetStatus(_ context.Context, id string) (string, error) {
	b, ok := f.s.books[id]
	if !ok {
		return "", nil
	}

	return b.Status, nil
}

func (f *fakeBooks) List(_ context.Context, limit int) ([]books.WithReview, error) {
	rows := make([]books.WithReview, 0, len(f.s.books))
	for id, b := range f.s.books {
		copied := *b
		rows = append(rows, books.WithReview{Book: &copied, Review: f.s.reviews[id]})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Book.LastAccessedAt.After(rows[j].Book.LastAccessedAt)
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}

func (f *fakeBooks) Save(_ context.Context, book *types.Book) error {
	if _, ok := f.s.books[book.Id]; ok {
		return nil // do nothing on conflict
	}

	copied := *book
	copied.LastAccessedAt = time.Now()
	f.s.books[book.Id] = &copied
	return nil
}

func (f *fakeBooks) SetStatus(_ context.Context, id, status string) (bool, error) {
	b, ok := f.s.books[id]
	if !ok {
		return false, nil
	}

	b.Status = status
	b.LastAccessedAt = time.Now()
	return true, nil
}

func (f *fakeBooks) Delete(_ context.Context, id string) error {
	delete(f.s.books, id)
	delete(f.s.reviews, id) // cascade
	return nil
}

type fakeReviews struct{ s *fakeStore }

func (f *fakeReviews) GetByBookId(_ context.Context, bookId string) (*types.Review, error) {
	r, ok := f.s.reviews[bookId]
	if !ok {
		return nil, nil
	}

	copied := *r
	return &copied, nil
}

func (f *fakeReviews) Save(_ context.Context, review *types.Review) error {
	copied := *review
	copied.DateAdded = time.Now()
	f.s.reviews[review.BookId] = &copied
	return nil
}

func (f *fakeReviews) Delete(_ context.Context, bookId string) error {
	delete(f.s.reviews, bookId)
	return nil
}

// newCatalogServer fakes the external catalog: OL1234W is Dune, "harry"
// matches two docs, anything else matches nothing.
func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/search.json":
			switch r.URL.Query().Get("q") {
			case "OL1234W":
				_, _ = w.Write([]byte(`{"numFound": 1, "docs": [{
					"key": "/works/OL1234W",
					"title": "Dune",
					"author_name": ["Frank Herbert"],
					"first_publish_year": 1965,
					"cover_edition_key": "OL449855M"
				}]}`))
			case "harry":
				_, _ = w.Write([]byte(`{"numFound": 2, "docs": [
					{"key": "/works/OL82563W", "title": "Harry Potter and the Philosopher's Stone",
					 "author_name": ["J. K. Rowling"], "first_publish_year": 1997},
					{"key": "/works/OL82586W", "title": "Harry Potter and the Chamber of Secrets",
					 "author_name": ["J. K. Rowling"], "first_publish_year": 1998}
				]}`))
			default:
				_, _ = w.Write([]byte(`{"numFound": 0, "docs": []}`))
			}
		case r.URL.Path == "/works/OL1234W.json":
			_, _ = w.Write([]byte(`{"key": "/works/OL1234W",
				"description": {"type": "/type/text", "value": "A desert planet saga."},
				"links": [{"title": "Wikipedia", "url": "https://en.wikipedia.org/wiki/Dune_(novel)"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestHandler(t *testing.T) (http.Handler, *fakeStore) {
	t.Helper()

	catalog := newCatalogServer(t)
	t.Cleanup(catalog.Close)

	tpls, err := template.ParseGlob("../../web/templates/*.html")
	require.NoError(t, err)

	store := newFakeStore()

	h := Handler(
		&fakeBooks{s: store},
		&fakeReviews{s: store},
		openlibrary.NewClient(catalog.Client(), catalog.URL, catalog.URL, slog.Default()),
		&response.Responder{DebugMode: true, Templates: tpls},
	)

	return h, store
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func postForm(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestBookDetailNotFoundUpstream(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(h, "/books/OLMISSINGW")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookDetailRendersCatalogBook(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(h, "/books/OL1234W")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Dune")
	assert.Contains(t, body, "Frank Herbert")
	assert.Contains(t, body, "A desert planet saga.")
	assert.Contains(t, body, "Add to my library")
}

func TestAddBookRedirectsAndStores(t *testing.T) {
	h, store := newTestHandler(t)

	w := postForm(h, "/books/OL1234W", url.Values{})

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/books/OL1234W", w.Header().Get("Location"))

	saved := store.books["OL1234W"]
	require.NotNil(t, saved)
	assert.Equal(t, "Dune", saved.Title)
	assert.Equal(t, "Frank Herbert", saved.Author)
	assert.Equal(t, "1965", saved.PublishYear)
	assert.Equal(t, types.StatusNotStarted, saved.Status)
	assert.Equal(t, "A desert planet saga.", saved.Description)
}

func TestAddBookAgainPreservesStatus(t *testing.T) {
	h, store := newTestHandler(t)

	postForm(h, "/books/OL1234W", url.Values{})
	postForm(h, "/books/OL1234W/status", url.Values{"status": {types.StatusReading}})

	w := postForm(h, "/books/OL1234W", url.Values{})

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, types.StatusReading, store.books["OL1234W"].Status)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	h, _ := newTestHandler(t)

	postForm(h, "/books/OL1234W", url.Values{})
	w := postForm(h, "/books/OL1234W/status", url.Values{"status": {"devoured"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusUnknownBook(t *testing.T) {
	h, _ := newTestHandler(t)

	w := postForm(h, "/books/OL9999W/status", url.Values{"status": {types.StatusReading}})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewSavedTwiceSecondWins(t *testing.T) {
	h, store := newTestHandler(t)

	postForm(h, "/books/OL1234W", url.Values{})
	postForm(h, "/books/OL1234W/review", url.Values{"rating": {"5"}, "content": {"Great"}})
	w := postForm(h, "/books/OL1234W/review", url.Values{"rating": {"3"}, "content": {"Fine on reread"}})

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Len(t, store.reviews, 1)
	assert.Equal(t, int16(3), store.reviews["OL1234W"].Rating)
	assert.Equal(t, "Fine on reread", store.reviews["OL1234W"].Content)
}

func TestReviewForUnsavedBookNotFound(t *testing.T) {
	h, store := newTestHandler(t)

	w := postForm(h, "/books/OL9999W/review", url.Values{"rating": {"4"}, "content": {"x"}})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.reviews)
}

func TestReviewInvalidRating(t *testing.T) {
	h, _ := newTestHandler(t)

	w := postForm(h, "/books/OL1234W/review", url.Values{"rating": {"five"}, "content": {"x"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteBookWithoutReview(t *testing.T) {
	h, store := newTestHandler(t)

	postForm(h, "/books/OL1234W", url.Values{})
	w := postForm(h, "/books/OL1234W/delete", url.Values{})

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, store.books)
	assert.Empty(t, store.reviews)
}

func TestAjaxSearchReturnsJson(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(h, "/oli/search?q=harry&ajax=1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var hits []view.SearchHit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hits))
	require.Len(t, hits, 2)
	assert.Equal(t, "OL82563W", hits[0].Olid)
	assert.Equal(t, "J. K. Rowling", hits[0].Author)
	assert.Equal(t, "1997", hits[0].PublishYear)
}

func TestSearchRendersPage(t *testing.T) {
	h, _ := newTestHandler(t)

	w := get(h, "/oli/search?q=harry")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Chamber of Secrets")
}

func TestOpdsFeed(t *testing.T) {
	h, _ := newTestHandler(t)

	postForm(h, "/books/OL1234W", url.Values{})
	w := get(h, "/opds")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "atom+xml")
	assert.Contains(t, w.Body.String(), "tag:book:OL1234W")
	assert.Contains(t, w.Body.String(), "Dune")
}

// The full walk-through: add, track, review, delete.
func TestLibraryScenario(t *testing.T) {
	h, store := newTestHandler(t)

	w := postForm(h, "/books/OL1234W", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "Frank Herbert", store.books["OL1234W"].Author)
	require.Equal(t, types.StatusNotStarted, store.books["OL1234W"].Status)

	w = postForm(h, "/books/OL1234W/status", url.Values{"status": {types.StatusReading}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = get(h, "/books/OL1234W")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="reading" selected`)

	w = postForm(h, "/books/OL1234W/review", url.Values{"rating": {"5"}, "content": {"Great"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = get(h, "/books/OL1234W")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "5/5")
	assert.Contains(t, w.Body.String(), "Great")

	w = postForm(h, "/books/OL1234W/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/books", w.Header().Get("Location"))

	w = get(h, "/books")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "OL1234W")
	assert.Empty(t, store.reviews)
}
