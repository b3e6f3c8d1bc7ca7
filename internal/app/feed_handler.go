package app

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"gopress/internal/cache"
	"gopress/internal/content"
	"gopress/internal/readtime"
)

// feedSize is how many posts a feed holds when it is not served from a
// session cache.
const feedSize = 20

// FeedHandler renders a filter's listing as RSS 2.0. A caller with a session
// gets exactly what it has browsed so far; anyone else gets the first page,
// reused for ArticleTTL.
type FeedHandler struct {
	srv   *Server
	pages *cache.TTL[content.FilterKey, []content.Post]
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(srv *Server, ttl time.Duration) *FeedHandler {
	return &FeedHandler{
		srv:   srv,
		pages: cache.NewTTL[content.FilterKey, []content.Post](ttl),
	}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := content.ParseFilterKey(r.URL.Query().Get("category"))
	if err != nil {
		h.srv.writeError(w, r, err)
		return
	}

	posts, err := h.posts(r, key)
	if err != nil {
		h.srv.writeError(w, r, err)
		return
	}

	rss, err := h.build(key, posts).ToRss()
	if err != nil {
		h.srv.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rss))
}

func (h *FeedHandler) posts(r *http.Request, key content.FilterKey) ([]content.Post, error) {
	if sess := h.existingSession(r); sess != nil {
		if e, ok := sess.Cache.Get(key); ok {
			return e.Posts, nil
		}
	}

	if posts, ok := h.pages.Get(key); ok {
		return posts, nil
	}
	page, err := h.srv.source.FetchPosts(r.Context(), 1, feedSize, key)
	if err != nil {
		return nil, err
	}
	h.pages.Set(key, page.Posts)
	return page.Posts, nil
}

func (h *FeedHandler) existingSession(r *http.Request) *Session {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	sess, err := h.srv.sessions.Get(id)
	if err != nil {
		return nil
	}
	return sess
}

func (h *FeedHandler) build(key content.FilterKey, posts []content.Post) *feeds.Feed {
	cfg := h.srv.cfg
	feed := &feeds.Feed{
		Title:       cfg.FeedTitle,
		Link:        &feeds.Link{Href: cfg.siteURL()},
		Description: "Latest posts",
		Created:     time.Now(),
	}
	if !key.IsAll() {
		feed.Description = "Latest posts in category " + key.String()
	}

	for _, p := range posts {
		item := &feeds.Item{
			Id:          guidFromURL(p.Link),
			Title:       p.Title,
			Link:        &feeds.Link{Href: p.Link},
			Description: summarizeHTML(p.ExcerptHTML, 300),
			Created:     p.PublishedAt,
			Content:     p.ContentHTML,
		}
		if img := h.srv.media.FeaturedImage(p); img != h.srv.media.Placeholder() {
			item.Enclosure = &feeds.Enclosure{Url: img, Type: imageType(img), Length: "0"}
		}
		feed.Items = append(feed.Items, item)
	}

	h.srv.log.Debug("Feed built", zap.Stringer("filter", key), zap.Int("items", len(feed.Items)))
	return feed
}

// guidFromURL creates a deterministic GUID from a URL.
func guidFromURL(u string) string {
	hash := sha256.Sum256([]byte(u))
	return hex.EncodeToString(hash[:])
}

// summarizeHTML trims the HTML content to a short text summary.
func summarizeHTML(html string, limit int) string {
	plain := strings.Join(strings.Fields(readtime.StripMarkup(html)), " ")
	runes := []rune(plain)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return plain
}

func imageType(u string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(strings.SplitN(u, "?", 2)[0]))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
