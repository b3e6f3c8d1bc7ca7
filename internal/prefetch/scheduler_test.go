package prefetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gopress/internal/cache"
	"gopress/internal/content"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[content.FilterKey]int
	inFlight int
	maxSeen  int
	delay    time.Duration
	fail     map[content.FilterKey]bool
	size     int
}

func newFakeFetcher(size int) *fakeFetcher {
	return &fakeFetcher{
		calls: make(map[content.FilterKey]int),
		fail:  make(map[content.FilterKey]bool),
		size:  size,
	}
}

func (f *fakeFetcher) FetchPosts(_ context.Context, page, _ int, key content.FilterKey) (content.PostPage, error) {
	f.mu.Lock()
	f.calls[key]++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	fail := f.fail[key]
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if fail {
		return content.PostPage{}, errors.New("boom")
	}
	posts := make([]content.Post, f.size)
	for i := range posts {
		posts[i] = content.Post{ID: int(key)*100 + i, CategoryIDs: []int{int(key)}}
	}
	return content.PostPage{Posts: posts, TotalPages: 5}, nil
}

func (f *fakeFetcher) Calls(key content.FilterKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func categories(ids ...int) []content.Category {
	out := make([]content.Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, content.Category{ID: id, Count: 3})
	}
	return out
}

func TestRun_FillsMissingEntries(t *testing.T) {
	c := cache.NewCategoryCache()
	c.Put(content.CategoryKey(2), cache.Entry{Posts: []content.Post{{ID: 9}}, Page: 1})

	src := newFakeFetcher(4)
	s := New(c, src)

	stored := s.Run(context.Background(), categories(1, 2, 3))
	require.Equal(t, 2, stored)

	require.Equal(t, 1, src.Calls(content.CategoryKey(1)))
	require.Equal(t, 0, src.Calls(content.CategoryKey(2)))
	require.Equal(t, 1, src.Calls(content.CategoryKey(3)))

	e2, ok := c.Get(content.CategoryKey(2))
	require.True(t, ok)
	require.Len(t, e2.Posts, 1)

	e1, ok := c.Get(content.CategoryKey(1))
	require.True(t, ok)
	require.Equal(t, 1, e1.Page)
	require.Len(t, e1.Posts, 4)
	require.False(t, e1.Exhausted)
}

func TestRun_ShortPageIsExhausted(t *testing.T) {
	c := cache.NewCategoryCache()
	s := New(c, newFakeFetcher(2), WithPageSize(4))

	s.Run(context.Background(), categories(8))

	e, ok := c.Get(content.CategoryKey(8))
	require.True(t, ok)
	require.True(t, e.Exhausted)
}

func TestRun_FailuresAreNotCached(t *testing.T) {
	c := cache.NewCategoryCache()
	src := newFakeFetcher(4)
	src.fail[content.CategoryKey(5)] = true
	s := New(c, src)

	stored := s.Run(context.Background(), categories(4, 5))
	require.Equal(t, 1, stored)
	require.True(t, c.Has(content.CategoryKey(4)))
	require.False(t, c.Has(content.CategoryKey(5)))
}

func TestRun_BoundedConcurrency(t *testing.T) {
	src := newFakeFetcher(4)
	src.delay = 20 * time.Millisecond
	s := New(cache.NewCategoryCache(), src, WithConcurrency(2))

	stored := s.Run(context.Background(), categories(1, 2, 3, 4, 5, 6))
	require.Equal(t, 6, stored)

	src.mu.Lock()
	defer src.mu.Unlock()
	require.LessOrEqual(t, src.maxSeen, 2)
}

func TestSchedule_OncePerCategorySet(t *testing.T) {
	c := cache.NewCategoryCache()
	src := newFakeFetcher(4)
	s := New(c, src)
	ctx := context.Background()

	require.True(t, s.Schedule(ctx, categories(1, 2)))
	require.False(t, s.Schedule(ctx, categories(2, 1)))
	s.Wait()

	require.Equal(t, 1, src.Calls(content.CategoryKey(1)))
	require.Equal(t, 1, src.Calls(content.CategoryKey(2)))

	require.True(t, s.Schedule(ctx, categories(1, 2, 3)))
	s.Wait()

	require.Equal(t, 1, src.Calls(content.CategoryKey(1)))
	require.Equal(t, 1, src.Calls(content.CategoryKey(3)))
	require.Equal(t, []content.FilterKey{1, 2, 3}, c.Keys())
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	require.Equal(t, fingerprint(categories(3, 1, 2)), fingerprint(categories(1, 2, 3, 3)))
	require.NotEqual(t, fingerprint(categories(1, 2)), fingerprint(categories(1, 2, 3)))
	require.Equal(t, "", fingerprint(nil))
}
