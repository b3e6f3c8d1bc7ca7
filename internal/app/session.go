package app

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gopress/internal/browse"
	"gopress/internal/cache"
	"gopress/internal/content"
	"gopress/internal/media"
	"gopress/internal/prefetch"
)

// ErrNoSession is returned for unknown or expired session ids.
var ErrNoSession = errors.New("no such session")

// ContentSource is everything a session reads from WordPress.
type ContentSource interface {
	browse.ArticleSource
	FetchCategories(ctx context.Context) ([]content.Category, error)
}

// Session is one visitor's browsing state: its own category cache and the
// controller, scheduler and article views built on it.
type Session struct {
	ID         string
	Cache      *cache.CategoryCache
	Controller *browse.Controller
	Prefetch   *prefetch.Scheduler
	Articles   *browse.Articles

	src ContentSource
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	categories []content.Category
	catsLoaded bool
}

func newSession(parent context.Context, id string, cfg *Config, src ContentSource, resolver *media.Resolver, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	log = log.With(zap.String("session", id))

	c := cache.NewCategoryCache()
	loader := browse.NewLoader(src)

	return &Session{
		ID:    id,
		Cache: c,
		Controller: browse.NewController(c, loader,
			browse.WithPageSize(cfg.PageSize),
			browse.WithLogger(log),
		),
		Prefetch: prefetch.New(c, loader,
			prefetch.WithPageSize(cfg.PageSize),
			prefetch.WithConcurrency(cfg.PrefetchConcurrency),
			prefetch.WithLogger(log),
		),
		Articles: browse.NewArticles(src, resolver,
			browse.WithRelated(cfg.RelatedCorpusSize, cfg.RelatedCount),
			browse.WithMemoTTL(cfg.ArticleTTL),
			browse.WithArticleLogger(log),
		),
		src:    src,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start loads the unfiltered first page, then the category set, and kicks
// off prefetching of the categories.
func (s *Session) Start(ctx context.Context) (browse.View, error) {
	v, err := s.Controller.SelectFilter(ctx, content.AllPosts)
	if _, cerr := s.Categories(ctx); cerr != nil {
		s.log.Warn("Categories unavailable at session start", zap.Error(cerr))
	}
	return v, err
}

// Categories returns the used categories, fetching them until one fetch
// succeeds. A successful fetch schedules the prefetch.
func (s *Session) Categories(ctx context.Context) ([]content.Category, error) {
	s.mu.Lock()
	if s.catsLoaded {
		cats := s.categories
		s.mu.Unlock()
		return cats, nil
	}
	s.mu.Unlock()

	cats, err := s.src.FetchCategories(ctx)
	if err != nil {
		return []content.Category{}, err
	}

	s.mu.Lock()
	s.categories = cats
	s.catsLoaded = true
	s.mu.Unlock()

	s.Prefetch.Schedule(s.ctx, cats)
	return cats, nil
}

// Close cancels outstanding prefetches and waits for them to return.
func (s *Session) Close() {
	s.cancel()
	s.Prefetch.Wait()
}

// SessionStore keeps sessions for a sliding idle window.
type SessionStore struct {
	cfg      *Config
	src      ContentSource
	resolver *media.Resolver
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	sessions *cache.TTL[string, *Session]
}

// NewSessionStore creates a store. Expired sessions are closed when dropped.
func NewSessionStore(cfg *Config, src ContentSource, resolver *media.Resolver, log *zap.Logger) *SessionStore {
	ctx, cancel := context.WithCancel(context.Background())
	st := &SessionStore{
		cfg:      cfg,
		src:      src,
		resolver: resolver,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		sessions: cache.NewTTL[string, *Session](cfg.SessionTTL),
	}
	st.sessions.OnEvict(func(id string, s *Session) {
		log.Debug("Session expired", zap.String("session", id))
		s.Close()
	})
	return st
}

// Create starts a new session.
func (st *SessionStore) Create() *Session {
	s := newSession(st.ctx, uuid.NewString(), st.cfg, st.src, st.resolver, st.log)
	st.sessions.Set(s.ID, s)
	return s
}

// Get returns a live session and extends its lifetime.
func (st *SessionStore) Get(id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrNoSession
	}
	st.sessions.Touch(id)
	return s, nil
}

// Len returns the number of stored sessions.
func (st *SessionStore) Len() int {
	return st.sessions.Size()
}

// Sweep drops idle sessions and expired article lookups of the live ones.
func (st *SessionStore) Sweep() int {
	removed := st.sessions.Cleanup()
	for _, s := range st.sessions.Values() {
		s.Articles.Sweep()
	}
	return removed
}

// Close cancels every session and waits for their background work.
func (st *SessionStore) Close() {
	st.cancel()
	st.sessions.Cleanup()
	for _, s := range st.sessions.Values() {
		s.Close()
	}
}
