package server

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookshelf/internal/opds"
	"bookshelf/internal/openlibrary"
	"bookshelf/internal/response"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/reviews"
	"bookshelf/internal/types"
	"bookshelf/internal/view"
)

const opdsContentType = "application/atom+xml;profile=opds-catalog"

type listPage struct {
	Title string
	Books []books.WithReview
}

type reviewPage struct {
	Olid   string
	Review *types.Review
}

type searchPage struct {
	Q       string
	Results []view.SearchHit
}

func Handler(br books.Repository, vr reviews.Repository, ol *openlibrary.Client,
	rr *response.Responder) http.Handler {

	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		rows, err := br.List(r.Context(), 10)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		rr.SendHTML(w, r.Context(), "index.html", listPage{Title: "Bookshelf", Books: rows})
	})

	r.Get("/books", func(w http.ResponseWriter, r *http.Request) {
		rows, err := br.List(r.Context(), 0)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		rr.SendHTML(w, r.Context(), "my-books.html", listPage{Title: "My books", Books: rows})
	})

	r.Get("/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, work, err := fetchCatalog(r, ol, id)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if doc == nil {
			rr.RespondAndLogCustom(w, r.Context(),
				fmt.Errorf("book %s not found in catalog", id),
				slog.LevelWarn, http.StatusNotFound)
			return
		}

		saved, err := br.GetById(r.Context(), id)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		var review *types.Review
		if saved != nil {
			review, err = vr.GetByBookId(r.Context(), id)
			if err != nil {
				rr.RespondAndLogError(w, r.Context(), err)
				return
			}
		}

		rr.SendHTML(w, r.Context(), "book.html", view.FromCatalog(doc, work, saved, review))
	})

	r.Post("/books/{olid}", func(w http.ResponseWriter, r *http.Request) {
		olid := chi.URLParam(r, "olid")

		doc, work, err := fetchCatalog(r, ol, olid)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if doc == nil {
			rr.RespondAndLogCustom(w, r.Context(),
				fmt.Errorf("book %s not found in catalog", olid),
				slog.LevelWarn, http.StatusNotFound)
			return
		}

		// No store lookup: the row does not exist yet, and on conflict the
		// insert is a no-op anyway.
		vm := view.FromCatalog(doc, work, nil, nil)

		err = br.Save(r.Context(), vm.IntoBook(types.StatusNotStarted))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		http.Redirect(w, r, "/books/"+vm.Olid, http.StatusSeeOther)
	})

	r.Post("/books/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		status := r.PostFormValue("status")
		if !types.ValidStatus(status) {
			rr.RespondAndLogCustom(w, r.Context(),
				fmt.Errorf("invalid status %q", status),
				slog.LevelWarn, http.StatusBadRequest)
			return
		}

		found, err := br.SetStatus(r.Context(), id, status)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if !found {
			rr.RespondAndLogCustom(w, r.Context(),
				fmt.Errorf("book %s not in library", id),
				slog.LevelWarn, http.StatusNotFound)
			return
		}

		http.Redirect(w, r, "/books/"+id, http.StatusSeeOther)
	})

	r.Get("/books/{id}/review", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		review, err := vr.GetByBookId(r.Context(), id)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		rr.SendHTML(w, r.Context(), "review.html", reviewPage{Olid: id, Review: review})
	})

	r.Post("/books/{id}/review", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rating, err := strconv.ParseInt(r.PostFormValue("rating"), 10, 16)
		if err != nil {
			rr.RespondAndLogCustom(w, r.Context(),
				fmt.Errorf("invalid rating: %w", err),
				slog.LevelWarn, http.StatusBadRequest)
			return
		}

		// Reviews reference a saved book row.
		status, err := br.GetStatus(r.Context(), id)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}
		if status == "" {
			rr.RespondAndLogCustom(w, r.Context(),
				fmt.Errorf("book %s not in library", id),
				slog.LevelWarn, http.StatusNotFound)
			return
		}

		err = vr.Save(r.Context(), &types.Review{
			BookId:  id,
			Rating:  int16(rating),
			Content: r.PostFormValue("content"),
		})
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		http.Redirect(w, r, "/books/"+id, http.StatusSeeOther)
	})

	r.Post("/books/{id}/review/delete", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := vr.Delete(r.Context(), id); err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		http.Redirect(w, r, "/books/"+id, http.StatusSeeOther)
	})

	r.Post("/books/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		// Review rows cascade with the book.
		if err := br.Delete(r.Context(), id); err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		http.Redirect(w, r, "/books", http.StatusSeeOther)
	})

	r.Get("/oli/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		result, err := ol.Search(r.Context(), q.Get("q"), 10)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		hits := view.SearchHits(result.Docs)

		if q.Get("ajax") != "" {
			rr.SendJson(w, r.Context(), hits)
			return
		}

		rr.SendHTML(w, r.Context(), "search.html", searchPage{Q: q.Get("q"), Results: hits})
	})

	r.Get("/covers/{olid}", func(w http.ResponseWriter, r *http.Request) {
		size := r.URL.Query().Get("size")
		if size == "" {
			size = "L"
		}

		bs, contentType, err := ol.Cover(r.Context(), chi.URLParam(r, "olid"), size)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		_, _ = io.Copy(w, bytes.NewReader(bs))
	})

	r.Get("/opds", func(w http.ResponseWriter, r *http.Request) {
		rows, err := br.List(r.Context(), 0)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		feed := opds.FromLibrary(rows)

		bs, err := xml.MarshalIndent(feed, "", "  ")
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		w.Header().Set("Content-Type", opdsContentType)
		_, _ = io.Copy(w, bytes.NewReader([]byte(xml.Header)))
		_, _ = io.Copy(w, bytes.NewReader(bs))
	})

	return r
}

// fetchCatalog runs the search (term = olid, limit 1) and the work-detail
// lookup the detail and add routes share. A nil doc means the catalog has no
// such book; a partially populated work is fine.
func fetchCatalog(r *http.Request, ol *openlibrary.Client, olid string) (*openlibrary.Doc, *openlibrary.Work, error) {
	result, err := ol.Search(r.Context(), olid, 1)
	if err != nil {
		return nil, nil, err
	}

	if len(result.Docs) == 0 {
		return nil, nil, nil
	}

	work, err := ol.Work(r.Context(), olid)
	if err != nil {
		return nil, nil, err
	}

	return &result.Docs[0], work, nil
}
