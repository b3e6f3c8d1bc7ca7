// Package prefetch warms the category cache with the first page of every
// category once the category set is known.
package prefetch

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gopress/internal/cache"
	"gopress/internal/content"
)

const (
	// DefaultConcurrency bounds simultaneous prefetch requests.
	DefaultConcurrency = 4
	defaultPageSize    = 4
)

// Fetcher fetches one page of a listing.
type Fetcher interface {
	FetchPosts(ctx context.Context, page, pageSize int, key content.FilterKey) (content.PostPage, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency bounds concurrent fetches.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithPageSize sets the page size of prefetched pages. It must match the
// controller's so cached entries are interchangeable.
func WithPageSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger injects a logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// Scheduler populates missing cache entries in the background. It never
// changes what the visitor currently sees.
type Scheduler struct {
	cache    *cache.CategoryCache
	src      Fetcher
	pageSize int
	limit    int
	log      *zap.Logger

	mu      sync.Mutex
	lastSet string
	wg      sync.WaitGroup
}

// New creates a Scheduler.
func New(c *cache.CategoryCache, src Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		cache:    c,
		src:      src,
		pageSize: defaultPageSize,
		limit:    DefaultConcurrency,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule starts a background prefetch for cats unless the same set was
// already scheduled. It reports whether a run was started.
func (s *Scheduler) Schedule(ctx context.Context, cats []content.Category) bool {
	fp := fingerprint(cats)

	s.mu.Lock()
	if fp == s.lastSet {
		s.mu.Unlock()
		return false
	}
	s.lastSet = fp
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.Run(ctx, cats)
	}()
	return true
}

// Run prefetches page 1 of every category lacking a cache entry and returns
// the number of entries it stored.
func (s *Scheduler) Run(ctx context.Context, cats []content.Category) int {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	var (
		mu     sync.Mutex
		stored int
	)
	for _, cat := range cats {
		key := content.CategoryKey(cat.ID)
		if s.cache.Has(key) {
			continue
		}

		g.Go(func() error {
			// the visitor may have loaded it while this task was queued
			if s.cache.Has(key) {
				return nil
			}
			page, err := s.src.FetchPosts(ctx, 1, s.pageSize, key)
			if err != nil {
				s.log.Warn("Prefetch failed", zap.Stringer("filter", key), zap.Error(err))
				return nil
			}

			_, ok := s.cache.PutIfAbsent(key, cache.Entry{
				Posts:     page.Posts,
				Page:      1,
				Exhausted: page.IsLast(1, s.pageSize),
			})
			if ok {
				mu.Lock()
				stored++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Debug("Prefetch finished", zap.Int("categories", len(cats)), zap.Int("stored", stored))
	return stored
}

// Wait blocks until scheduled runs have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func fingerprint(cats []content.Category) string {
	ids := make([]int, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
