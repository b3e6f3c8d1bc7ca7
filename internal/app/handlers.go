package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gopress/internal/browse"
	"gopress/internal/content"
	"gopress/internal/wordpress"
)

const (
	sessionCookie = "sid"
	sessionHeader = "X-Session-Id"
)

// APIError is the error body returned to the front end.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps APIError.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type postJSON struct {
	ID          int       `json:"id"`
	Slug        string    `json:"slug"`
	Link        string    `json:"link,omitempty"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content,omitempty"`
	Categories  []int     `json:"categories"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"published_at"`
}

type viewJSON struct {
	Session    string     `json:"session"`
	Filter     string     `json:"filter"`
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	Loading    bool       `json:"loading"`
	Superseded bool       `json:"superseded,omitempty"`
	Page       int        `json:"page"`
	HasMore    bool       `json:"has_more"`
	Posts      []postJSON `json:"posts"`
}

type categoryJSON struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

type seoJSON struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	OGImage     string `json:"og_image,omitempty"`
}

type articleJSON struct {
	Post           postJSON   `json:"post"`
	SEO            seoJSON    `json:"seo"`
	ReadingMinutes int        `json:"reading_minutes"`
	Related        []postJSON `json:"related"`
}

type sessionJSON struct {
	viewJSON
	Categories []categoryJSON `json:"categories"`
}

func (s *Server) toPost(p content.Post, image string, withContent bool) postJSON {
	if image == "" {
		image = s.media.FeaturedImage(p)
	}
	out := postJSON{
		ID:          p.ID,
		Slug:        p.Slug,
		Link:        p.Link,
		Title:       p.Title,
		Excerpt:     p.ExcerptHTML,
		Categories:  p.CategoryIDs,
		Image:       image,
		PublishedAt: p.PublishedAt,
	}
	if out.Categories == nil {
		out.Categories = []int{}
	}
	if withContent {
		out.Content = p.ContentHTML
	}
	return out
}

func (s *Server) toView(sessionID string, v browse.View) viewJSON {
	out := viewJSON{
		Session: sessionID,
		Filter:  v.Key.String(),
		State:   v.State.Phase.String(),
		Loading: v.Loading(),
		Page:    v.Page,
		HasMore: v.HasMore,
		Posts:   make([]postJSON, 0, len(v.Posts)),
	}
	if v.State.Err != nil {
		out.Error = "content source unavailable"
	}
	for _, p := range v.Posts {
		out.Posts = append(out.Posts, s.toPost(p, "", false))
	}
	return out
}

func toCategories(cats []content.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{ID: c.ID, Name: c.Name, Slug: c.Slug, Count: c.Count})
	}
	return out
}

// handleCreateSession starts a fresh session with the unfiltered listing and
// the category set.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.bindSession(w, sess)

	v, err := sess.Start(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cats, _ := sess.Categories(r.Context())

	writeJSON(w, http.StatusCreated, sessionJSON{
		viewJSON:   s.toView(sess.ID, v),
		Categories: toCategories(cats),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	cats, err := sess.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategories(cats))
}

func (s *Server) handleSelectFilter(w http.ResponseWriter, r *http.Request) {
	key, err := content.ParseFilterKey(r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess := s.session(w, r)
	v, err := sess.Controller.SelectFilter(r.Context(), key)
	superseded := errors.Is(err, browse.ErrSuperseded)
	if err != nil && !superseded {
		s.writeError(w, r, err)
		return
	}

	out := s.toView(sess.ID, v)
	out.Superseded = superseded
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	v, err := sess.Controller.LoadMore(r.Context())
	superseded := errors.Is(err, browse.ErrSuperseded)
	if err != nil && !superseded {
		s.writeError(w, r, err)
		return
	}

	out := s.toView(sess.ID, v)
	out.Superseded = superseded
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleViewPost(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		s.writeError(w, r, wordpress.ErrInvalidArgument)
		return
	}

	sess := s.session(w, r)
	art, err := sess.Articles.ViewPost(r.Context(), slug)
	if err != nil {
		// lookup failures render like a missing post
		s.log.Warn("Article unavailable", zap.String("slug", slug), zap.Error(err))
		art = nil
	}
	if art == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: APIError{
			Code:      "not_found",
			Message:   "post not found",
			RequestID: middleware.GetReqID(r.Context()),
		}})
		return
	}

	out := articleJSON{
		Post: s.toPost(art.Post, art.ImageURL, true),
		SEO: seoJSON{
			Title:       art.Post.SEO.Title,
			Description: art.Post.SEO.Description,
			OGImage:     art.Post.SEO.OGImage,
		},
		ReadingMinutes: art.ReadingMinutes,
		Related:        make([]postJSON, 0, len(art.Related)),
	}
	for _, rel := range art.Related {
		out.Related = append(out.Related, s.toPost(rel.Post, rel.ImageURL, false))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleHealth returns JSON health information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "gopress",
		"sessions":  s.sessions.Len(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// session resolves the caller's session from the header or cookie, creating
// a fresh one when the id is unknown or expired.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		sess = s.sessions.Create()
		if id != "" {
			s.log.Debug("Replacing unknown session", zap.String("requested", id), zap.String("session", sess.ID))
		}
	}
	s.bindSession(w, sess)
	return sess
}

func (s *Server) bindSession(w http.ResponseWriter, sess *Session) {
	w.Header().Set(sessionHeader, sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeError maps err to a status and a body without leaking details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := http.StatusInternalServerError, "internal", "internal error"

	var invalid *content.InvalidFilterError
	switch {
	case errors.As(err, &invalid), errors.Is(err, wordpress.ErrInvalidArgument):
		status, code, msg = http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, wordpress.ErrUnavailable):
		status, code, msg = http.StatusBadGateway, "unavailable", "content source unavailable"
	case errors.Is(err, ErrNoSession):
		status, code, msg = http.StatusUnauthorized, "no_session", "session expired"
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	writeJSON(w, status, ErrorResponse{Error: APIError{
		Code:      code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
