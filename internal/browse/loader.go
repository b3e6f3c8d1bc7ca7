package browse

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"gopress/internal/content"
)

// PostSource fetches one page of a listing.
type PostSource interface {
	FetchPosts(ctx context.Context, page, pageSize int, key content.FilterKey) (content.PostPage, error)
}

// Loader collapses identical in-flight page requests into one upstream call,
// so the controller and the prefetch scheduler never both fetch the same
// first page of a category.
type Loader struct {
	src   PostSource
	group singleflight.Group
}

// NewLoader wraps src.
func NewLoader(src PostSource) *Loader {
	return &Loader{src: src}
}

// FetchPosts implements PostSource. The first caller's context governs a
// shared call.
func (l *Loader) FetchPosts(ctx context.Context, page, pageSize int, key content.FilterKey) (content.PostPage, error) {
	flightKey := fmt.Sprintf("%s:%d:%d", key, page, pageSize)

	v, err, _ := l.group.Do(flightKey, func() (any, error) {
		return l.src.FetchPosts(ctx, page, pageSize, key)
	})
	if err != nil {
		return content.PostPage{}, err
	}
	return v.(content.PostPage), nil
}
