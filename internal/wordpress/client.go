// Package wordpress is the content gateway: single-attempt reads against the
// WordPress REST API (wp-json/wp/v2).
package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gopress/internal/content"
	"gopress/internal/fetch"
)

var (
	// ErrUnavailable marks a transport failure or a non-success response.
	// Listing calls return an empty page with it, lookups return no post.
	ErrUnavailable = errors.New("content source unavailable")
	// ErrInvalidArgument is returned for non-positive page or page size.
	ErrInvalidArgument = errors.New("invalid argument")
)

// maxBody caps how much of a response is decoded.
const maxBody = 16 << 20

// categoriesPerPage is the REST API maximum.
const categoriesPerPage = 100

// Gateway issues parameterized reads. It holds no per-request state.
type Gateway struct {
	base   *url.URL
	client *fetch.Client
	log    *zap.Logger
}

// New creates a Gateway for an API root such as https://example.com/wp-json/wp/v2.
func New(apiURL string, client *fetch.Client, log *zap.Logger) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: unsupported scheme", apiURL)
	}
	if client == nil {
		client = fetch.NewClient(fetch.ClientOptions{})
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{base: u, client: client, log: log}, nil
}

// FetchPosts returns one page of posts, optionally restricted to a category.
// A page past the end of the listing is an empty page, not an error.
func (g *Gateway) FetchPosts(ctx context.Context, page, pageSize int, key content.FilterKey) (content.PostPage, error) {
	const op = "wordpress.FetchPosts"

	if page < 1 || pageSize < 1 {
		return content.PostPage{}, fmt.Errorf("%s: page=%d per_page=%d: %w", op, page, pageSize, ErrInvalidArgument)
	}

	q := url.Values{}
	q.Set("_embed", "")
	q.Set("per_page", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	if id, ok := key.CategoryID(); ok {
		q.Set("categories", strconv.Itoa(id))
	}

	var raw []wpPost
	resp, err := g.getJSON(ctx, op, "posts", q, &raw)
	if err != nil {
		return content.PostPage{}, err
	}
	if resp.exhausted {
		return content.PostPage{}, nil
	}

	out := content.PostPage{
		Posts:      make([]content.Post, 0, len(raw)),
		TotalPages: resp.totalPages,
	}
	for _, p := range raw {
		out.Posts = append(out.Posts, p.toPost())
	}

	g.log.Debug("Posts fetched",
		zap.String("op", op),
		zap.Stringer("filter", key),
		zap.Int("page", page),
		zap.Int("items", len(out.Posts)),
	)
	return out, nil
}

// FetchCategories returns categories that currently have at least one post.
func (g *Gateway) FetchCategories(ctx context.Context) ([]content.Category, error) {
	const op = "wordpress.FetchCategories"

	q := url.Values{}
	q.Set("hide_empty", "true")
	q.Set("per_page", strconv.Itoa(categoriesPerPage))

	var raw []wpCategory
	if _, err := g.getJSON(ctx, op, "categories", q, &raw); err != nil {
		return nil, err
	}

	out := make([]content.Category, 0, len(raw))
	for _, c := range raw {
		// hide_empty is advisory on some installs
		if c.Count <= 0 {
			continue
		}
		out = append(out, c.toCategory())
	}
	return out, nil
}

// FetchPostBySlug returns the post with exactly this slug, or nil when there
// is none.
func (g *Gateway) FetchPostBySlug(ctx context.Context, slug string) (*content.Post, error) {
	const op = "wordpress.FetchPostBySlug"

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("_embed", "")
	q.Set("slug", slug)

	var raw []wpPost
	if _, err := g.getJSON(ctx, op, "posts", q, &raw); err != nil {
		return nil, err
	}

	// the API matches sanitized slugs, so compare again
	for _, p := range raw {
		if p.Slug == slug {
			post := p.toPost()
			return &post, nil
		}
	}
	return nil, nil
}

type responseMeta struct {
	totalPages int
	exhausted  bool
}

func (g *Gateway) endpoint(path string, q url.Values) string {
	u := *g.base
	u.Path = u.Path + "/" + path
	u.RawQuery = q.Encode()
	return u.String()
}

// getJSON performs one GET and decodes a 200 body into dst.
func (g *Gateway) getJSON(ctx context.Context, op, path string, q url.Values, dst any) (responseMeta, error) {
	target := g.endpoint(path, q)

	resp, err := g.client.Get(ctx, target, map[string]string{"Accept": "application/json"})
	if err != nil {
		g.log.Warn("Upstream request failed",
			zap.String("op", op),
			zap.String("url", target),
			zap.Error(err),
		)
		return responseMeta{}, fmt.Errorf("%s: do: %v: %w", op, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBody)

	if resp.StatusCode != http.StatusOK {
		var apiErr wpError
		_ = json.NewDecoder(body).Decode(&apiErr)
		_, _ = io.Copy(io.Discard, body)

		if resp.StatusCode == http.StatusBadRequest && apiErr.Code == codeInvalidPage {
			return responseMeta{exhausted: true}, nil
		}

		g.log.Warn("Upstream returned non-success status",
			zap.String("op", op),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return responseMeta{}, fmt.Errorf("%s: status=%d: %w", op, resp.StatusCode, ErrUnavailable)
	}

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		g.log.Warn("Upstream body decode failed",
			zap.String("op", op),
			zap.String("url", target),
			zap.Error(err),
		)
		return responseMeta{}, fmt.Errorf("%s: decode: %v: %w", op, err, ErrUnavailable)
	}

	meta := responseMeta{}
	if v := resp.Header.Get("X-WP-TotalPages"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			meta.totalPages = n
		}
	}
	return meta, nil
}
