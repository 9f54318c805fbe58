package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	userAgent = "bookshelf/1.0"

	// Work keys always arrive as "/works/<olid>". Stripping the fixed prefix
	// is part of the catalog contract, keep it in one place.
	workKeyPrefix = "/works/"
)

// TrimWorkKey strips the fixed "/works/" path segment from a catalog work key,
// leaving the bare OLID used as the local primary key.
func TrimWorkKey(key string) string {
	return strings.TrimPrefix(key, workKeyPrefix)
}

type SearchResult struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

type Doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	CoverEditionKey  string   `json:"cover_edition_key"`
}

// Work is the extended metadata of a single catalog work. Description is
// deliberately untyped: upstream returns either a plain string or an object
// with a "value" field.
type Work struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Description any        `json:"description"`
	Links       []WorkLink `json:"links"`
}

type WorkLink struct {
	Title string `json:"title"`
	Url   string `json:"url"`
}

// Client issues read-only pass-through calls against the catalog service.
// No retries, no caching: any transport failure, non-2xx status or malformed
// JSON surfaces as an error to the caller.
type Client struct {
	client    *http.Client
	baseUrl   string
	coversUrl string
	logger    *slog.Logger
}

func NewClient(client *http.Client, baseUrl, coversUrl string, l *slog.Logger) *Client {
	return &Client{
		client:    client,
		baseUrl:   strings.TrimSuffix(baseUrl, "/"),
		coversUrl: strings.TrimSuffix(coversUrl, "/"),
		logger:    l,
	}
}

// Search runs a keyword search with a result cap. No pagination cursor is
// exposed, callers re-issue with a different limit if they need more.
func (c *Client) Search(ctx context.Context, term string, limit int) (*SearchResult, error) {
	u := c.baseUrl + "/search.json?q=" + url.QueryEscape(term) + "&limit=" + strconv.Itoa(limit)

	var result SearchResult
	if err := c.getJson(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("searching books: %w", err)
	}

	return &result, nil
}

// Work fetches extended metadata for a single work by its OLID.
func (c *Client) Work(ctx context.Context, olid string) (*Work, error) {
	u := c.baseUrl + "/works/" + url.PathEscape(olid) + ".json"

	var work Work
	if err := c.getJson(ctx, u, &work); err != nil {
		return nil, fmt.Errorf("fetching work detail: %w", err)
	}

	return &work, nil
}

// Cover fetches the cover image for an OLID from the covers host. Size is one
// of S, M or L. Returns the raw image bytes and the upstream content type.
func (c *Client) Cover(ctx context.Context, olid, size string) ([]byte, string, error) {
	u := c.coversUrl + "/b/olid/" + url.PathEscape(olid) + "-" + size + ".jpg"

	res, err := c.get(ctx, u)
	if err != nil {
		return nil, "", fmt.Errorf("fetching cover: %w", err)
	}

	var bs []byte
	func() {
		defer res.Body.Close()
		bs, err = io.ReadAll(res.Body)
	}()

	if err != nil {
		return nil, "", fmt.Errorf("fetching cover (reading response): %w", err)
	}

	return bs, res.Header.Get("Content-Type"), nil
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to fetch "+u+": "+err.Error())
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_ = res.Body.Close()
		c.logger.ErrorContext(ctx, "Unexpected status fetching "+u+": "+res.Status)
		return nil, fmt.Errorf("unexpected status: %d", res.StatusCode)
	}

	return res, nil
}

func (c *Client) getJson(ctx context.Context, u string, into any) error {
	res, err := c.get(ctx, u)
	if err != nil {
		return err
	}

	var bs []byte
	func() {
		defer res.Body.Close()
		bs, err = io.ReadAll(res.Body)
	}()

	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to read body of "+u+": "+err.Error())
		return fmt.Errorf("reading response: %w", err)
	}

	if err := json.Unmarshal(bs, into); err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal body of "+u+": "+err.Error())
		return fmt.Errorf("unmarshalling response: %w", err)
	}

	return nil
}
