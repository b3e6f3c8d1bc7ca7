package browse

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"gopress/internal/cache"
	"gopress/internal/content"
	"gopress/internal/media"
	"gopress/internal/readtime"
	"gopress/internal/related"
)

// DefaultCorpusSize is how many posts of the primary category are fetched to
// pick related posts from.
const DefaultCorpusSize = 10

// ArticleSource is what the article view reads from.
type ArticleSource interface {
	PostSource
	FetchPostBySlug(ctx context.Context, slug string) (*content.Post, error)
}

// Article is a single-post view.
type Article struct {
	Post           content.Post
	ImageURL       string
	ReadingMinutes int
	Related        []RelatedPost
}

// RelatedPost is a related post card.
type RelatedPost struct {
	Post     content.Post
	ImageURL string
}

// ArticleOption configures Articles.
type ArticleOption func(*Articles)

// WithRelated sets the related corpus size and how many are shown.
func WithRelated(corpusSize, count int) ArticleOption {
	return func(a *Articles) {
		if corpusSize > 0 {
			a.corpusSize = corpusSize
		}
		if count >= 0 {
			a.count = count
		}
	}
}

// WithMemoTTL sets how long slug lookups are reused. Zero disables reuse.
func WithMemoTTL(ttl time.Duration) ArticleOption {
	return func(a *Articles) {
		a.memoTTL = ttl
	}
}

// WithRand sets the random source used to sample related posts.
func WithRand(rng *rand.Rand) ArticleOption {
	return func(a *Articles) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// WithArticleLogger injects a logger.
func WithArticleLogger(log *zap.Logger) ArticleOption {
	return func(a *Articles) {
		if log != nil {
			a.log = log
		}
	}
}

// Articles builds single-post views. It does not touch the category cache.
type Articles struct {
	src        ArticleSource
	media      *media.Resolver
	corpusSize int
	count      int
	memoTTL    time.Duration
	memo       *cache.TTL[string, content.Post]
	log        *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewArticles creates an article view service.
func NewArticles(src ArticleSource, resolver *media.Resolver, opts ...ArticleOption) *Articles {
	a := &Articles{
		src:        src,
		media:      resolver,
		corpusSize: DefaultCorpusSize,
		count:      related.DefaultCount,
		memoTTL:    time.Minute,
		log:        zap.NewNop(),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.media == nil {
		a.media, _ = media.NewResolver("")
	}
	if a.memoTTL > 0 {
		a.memo = cache.NewTTL[string, content.Post](a.memoTTL)
	}
	return a
}

// ViewPost returns the article for slug, or nil when no post has that slug.
// A failed related fetch yields an empty related set, not an error.
func (a *Articles) ViewPost(ctx context.Context, slug string) (*Article, error) {
	post, err := a.lookup(ctx, slug)
	if err != nil || post == nil {
		return nil, err
	}

	art := &Article{
		Post:           *post,
		ImageURL:       a.media.FeaturedImage(*post),
		ReadingMinutes: readtime.Minutes(post.ContentHTML),
		Related:        []RelatedPost{},
	}

	primary, ok := post.PrimaryCategory()
	if !ok || a.count == 0 {
		return art, nil
	}

	corpus, err := a.src.FetchPosts(ctx, 1, a.corpusSize, content.CategoryKey(primary))
	if err != nil {
		a.log.Warn("Related corpus fetch failed",
			zap.String("slug", slug),
			zap.Int("category", primary),
			zap.Error(err),
		)
		return art, nil
	}

	a.rngMu.Lock()
	picked := related.Sample(*post, corpus.Posts, a.count, a.rng)
	a.rngMu.Unlock()

	for _, p := range picked {
		art.Related = append(art.Related, RelatedPost{Post: p, ImageURL: a.media.FeaturedImage(p)})
	}
	return art, nil
}

func (a *Articles) lookup(ctx context.Context, slug string) (*content.Post, error) {
	if a.memo != nil {
		if p, ok := a.memo.Get(slug); ok {
			return &p, nil
		}
	}

	post, err := a.src.FetchPostBySlug(ctx, slug)
	if err != nil {
		a.log.Warn("Post lookup failed", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	if post == nil {
		return nil, nil
	}
	if a.memo != nil {
		a.memo.Set(slug, *post)
	}
	return post, nil
}

// Sweep drops expired slug lookups.
func (a *Articles) Sweep() int {
	if a.memo == nil {
		return 0
	}
	return a.memo.Cleanup()
}
