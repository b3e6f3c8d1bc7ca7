//go:generate mockgen -source=loader.go -destination=mocks/mock_loader.go -package=mocks
//go:generate mockgen -source=article.go -destination=mocks/mock_source.go -package=mocks

// Package browse mediates between filter/pagination actions and the
// category cache and content gateway.
package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gopress/internal/cache"
	"gopress/internal/content"
)

// DefaultPageSize matches the listing grid of the site.
const DefaultPageSize = 4

// ErrSuperseded is returned when a fetch completed after the visitor moved to
// another filter. Its result went to the cache only; the returned View
// reflects the filter selected now.
var ErrSuperseded = errors.New("superseded by a newer selection")

// Option mutates controller configuration.
type Option func(*Controller)

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger injects a logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller is the acquisition state machine for one browsing session.
//
// Fetches run outside the lock, so a new selection may be made while an
// older fetch is outstanding. Every fetch is tagged with the key, page and
// selection generation it was issued for, and its result is surfaced only
// when that tag still matches the current selection.
type Controller struct {
	cache    *cache.CategoryCache
	src      PostSource
	pageSize int
	log      *zap.Logger

	mu          sync.Mutex
	state       State
	gen         uint64
	loadingMore map[content.FilterKey]bool
}

// NewController creates a controller over a session's cache.
func NewController(c *cache.CategoryCache, src PostSource, opts ...Option) *Controller {
	ctrl := &Controller{
		cache:       c,
		src:         src,
		pageSize:    DefaultPageSize,
		log:         zap.NewNop(),
		loadingMore: make(map[content.FilterKey]bool),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// PageSize returns the configured page size.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// State returns the current acquisition state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a snapshot of the current filter.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// SelectFilter makes key the current filter. A cached key renders without a
// network call; otherwise the first page is fetched and cached.
func (c *Controller) SelectFilter(ctx context.Context, key content.FilterKey) (View, error) {
	c.mu.Lock()
	c.gen++
	req := request{key: key, page: 1, gen: c.gen}

	if c.cache.Has(key) {
		phase := PhaseLoaded
		if c.loadingMore[key] {
			phase = PhaseLoadingMore
		}
		c.state = State{Phase: phase, Key: key}
		v := c.viewLocked()
		c.mu.Unlock()

		c.log.Debug("Filter served from cache", zap.Stringer("filter", key), zap.Int("posts", len(v.Posts)))
		return v, nil
	}

	c.state = State{Phase: PhaseLoadingInitial, Key: key}
	c.mu.Unlock()

	// abandoned requests complete and are neutralized by the tag check
	page, err := c.src.FetchPosts(context.WithoutCancel(ctx), 1, c.pageSize, key)

	return c.completeInitial(req, page, err)
}

func (c *Controller) completeInitial(req request, page content.PostPage, err error) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := req.gen == c.gen

	if err != nil {
		c.log.Warn("Initial load failed",
			zap.Stringer("filter", req.key),
			zap.Bool("current", current),
			zap.Error(err),
		)
		if !current {
			return c.viewLocked(), fmt.Errorf("%w: %v", ErrSuperseded, err)
		}
		c.state = State{Phase: PhaseError, Key: req.key, Err: err}
		return c.viewLocked(), err
	}

	c.cache.PutIfAbsent(req.key, cache.Entry{
		Posts:     page.Posts,
		Page:      req.page,
		Exhausted: exhausted(page, req.page, c.pageSize),
	})

	if !current {
		c.log.Debug("Stale initial response cached only",
			zap.Stringer("filter", req.key),
			zap.Stringer("current", c.state.Key),
		)
		return c.viewLocked(), ErrSuperseded
	}

	c.state = State{Phase: PhaseLoaded, Key: req.key}
	return c.viewLocked(), nil
}

// LoadMore fetches the next page of the current filter. It does nothing when
// no filter is loaded, the listing is exhausted, or a load-more for the
// filter is already in flight.
func (c *Controller) LoadMore(ctx context.Context) (View, error) {
	c.mu.Lock()

	key := c.state.Key
	if c.state.Phase == PhaseIdle || c.state.Phase == PhaseLoadingInitial || c.loadingMore[key] {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}

	entry, ok := c.cache.Get(key)
	if !ok || entry.Exhausted {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}

	req := request{key: key, page: entry.Page + 1, gen: c.gen}
	c.loadingMore[key] = true
	c.state = State{Phase: PhaseLoadingMore, Key: key}
	c.mu.Unlock()

	page, err := c.src.FetchPosts(context.WithoutCancel(ctx), req.page, c.pageSize, key)

	return c.completeMore(req, page, err)
}

func (c *Controller) completeMore(req request, page content.PostPage, err error) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.loadingMore, req.key)
	current := c.state.Key == req.key

	if err != nil {
		// page stays where it was so the next attempt asks for the same page
		c.log.Warn("Load more failed",
			zap.Stringer("filter", req.key),
			zap.Int("page", req.page),
			zap.Bool("current", current),
			zap.Error(err),
		)
		if !current {
			return c.viewLocked(), fmt.Errorf("%w: %v", ErrSuperseded, err)
		}
		c.state = State{Phase: PhaseError, Key: req.key, Err: err}
		return c.viewLocked(), err
	}

	applied := c.cache.Append(req.key, page.Posts, req.page, !exhausted(page, req.page, c.pageSize))
	if !applied {
		c.log.Debug("Page dropped by cache",
			zap.Stringer("filter", req.key),
			zap.Int("page", req.page),
		)
	}

	if !current {
		c.log.Debug("Stale load-more response cached only",
			zap.Stringer("filter", req.key),
			zap.Stringer("current", c.state.Key),
		)
		return c.viewLocked(), ErrSuperseded
	}

	if c.state.Phase == PhaseLoadingMore {
		c.state = State{Phase: PhaseLoaded, Key: req.key}
	}
	return c.viewLocked(), nil
}

func (c *Controller) viewLocked() View {
	v := View{Key: c.state.Key, State: c.state}
	if c.state.Phase == PhaseIdle {
		return v
	}
	if e, ok := c.cache.Get(c.state.Key); ok {
		v.Posts = e.Posts
		v.Page = e.Page
		v.HasMore = e.HasMore()
	}
	return v
}
