package wordpress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gopress/internal/content"
	"gopress/internal/fetch"
)

const postsJSON = `[
  {
    "id": 11,
    "slug": "first",
    "link": "https://blog.example/first/",
    "date": "2024-05-01T12:00:00",
    "date_gmt": "2024-05-01T09:00:00",
    "title": {"rendered": "First"},
    "excerpt": {"rendered": "<p>one</p>"},
    "content": {"rendered": "<p>one two</p>"},
    "categories": [3, 5],
    "yoast_head_json": {"title": "SEO First", "description": "d", "og_image": [{"url": "https://blog.example/og.jpg"}]},
    "_embedded": {"wp:featuredmedia": [{"source_url": "https://blog.example/img/1.jpg"}]}
  },
  {
    "id": 12,
    "slug": "second",
    "date": "2024-05-02T08:30:00",
    "title": {"rendered": "Second"},
    "excerpt": {"rendered": ""},
    "content": {"rendered": ""},
    "categories": [5]
  }
]`

// newTestGateway wires a Gateway to a fake WordPress root.
func newTestGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	gw, err := New(srv.URL+"/wp-json/wp/v2/", fetch.NewClient(fetch.ClientOptions{Timeout: 2 * time.Second}), nil)
	require.NoError(t, err)
	return gw
}

func TestFetchPosts_BuildsQueryAndDecodes(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		q := r.URL.Query()
		require.True(t, q.Has("_embed"))
		require.Equal(t, "4", q.Get("per_page"))
		require.Equal(t, "2", q.Get("page"))
		require.Equal(t, "5", q.Get("categories"))

		w.Header().Set("X-WP-TotalPages", "3")
		_, _ = w.Write([]byte(postsJSON))
	})

	page, err := gw.FetchPosts(context.Background(), 2, 4, content.CategoryKey(5))
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Posts, 2)

	first := page.Posts[0]
	require.Equal(t, 11, first.ID)
	require.Equal(t, "first", first.Slug)
	require.Equal(t, "First", first.Title)
	require.Equal(t, []int{3, 5}, first.CategoryIDs)
	require.Equal(t, "https://blog.example/img/1.jpg", first.FeaturedImageURL)
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), first.PublishedAt)
	require.Equal(t, "SEO First", first.SEO.Title)
	require.Equal(t, "https://blog.example/og.jpg", first.SEO.OGImage)

	second := page.Posts[1]
	require.Empty(t, second.FeaturedImageURL)
	require.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC), second.PublishedAt)
}

func TestFetchPosts_AllPostsOmitsCategory(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.False(t, r.URL.Query().Has("categories"))
		_, _ = w.Write([]byte(`[]`))
	})

	page, err := gw.FetchPosts(context.Background(), 1, 4, content.AllPosts)
	require.NoError(t, err)
	require.Empty(t, page.Posts)
}

func TestFetchPosts_PagePastEndIsExhaustion(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"rest_post_invalid_page_number","message":"The page number requested is larger than the number of pages available.","data":{"status":400}}`))
	})

	page, err := gw.FetchPosts(context.Background(), 9, 4, content.AllPosts)
	require.NoError(t, err)
	require.Empty(t, page.Posts)
}

func TestFetchPosts_FailuresAreUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{
			name: "server error",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "other bad request",
			h: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"rest_invalid_param"}`))
			},
		},
		{
			name: "broken body",
			h: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"id": `))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := newTestGateway(t, tt.h)
			page, err := gw.FetchPosts(context.Background(), 1, 4, content.AllPosts)
			require.ErrorIs(t, err, ErrUnavailable)
			require.Empty(t, page.Posts)
		})
	}
}

func TestFetchPosts_RejectsBadArguments(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })

	_, err := gw.FetchPosts(context.Background(), 0, 4, content.AllPosts)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = gw.FetchPosts(context.Background(), 1, 0, content.AllPosts)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Zero(t, hits.Load())
}

func TestFetchCategories_DropsUnused(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wp-json/wp/v2/categories", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("hide_empty"))
		_, _ = w.Write([]byte(`[
			{"id": 3, "name": "News", "slug": "news", "count": 4},
			{"id": 4, "name": "Empty", "slug": "empty", "count": 0},
			{"id": 5, "name": "Guides", "slug": "guides", "count": 1}
		]`))
	})

	cats, err := gw.FetchCategories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []content.Category{
		{ID: 3, Name: "News", Slug: "news", Count: 4},
		{ID: 5, Name: "Guides", Slug: "guides", Count: 1},
	}, cats)
}

func TestFetchCategories_Failure(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	cats, err := gw.FetchCategories(context.Background())
	require.True(t, errors.Is(err, ErrUnavailable))
	require.Empty(t, cats)
}

func TestFetchPostBySlug(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("slug") {
		case "first":
			_, _ = w.Write([]byte(postsJSON))
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	t.Run("exact match", func(t *testing.T) {
		post, err := gw.FetchPostBySlug(context.Background(), "first")
		require.NoError(t, err)
		require.NotNil(t, post)
		require.Equal(t, 11, post.ID)
	})

	t.Run("no such slug", func(t *testing.T) {
		post, err := gw.FetchPostBySlug(context.Background(), "missing")
		require.NoError(t, err)
		require.Nil(t, post)
	})

	t.Run("empty slug skips request", func(t *testing.T) {
		post, err := gw.FetchPostBySlug(context.Background(), "  ")
		require.NoError(t, err)
		require.Nil(t, post)
	})

	t.Run("failure", func(t *testing.T) {
		post, err := gw.FetchPostBySlug(context.Background(), "broken")
		require.ErrorIs(t, err, ErrUnavailable)
		require.Nil(t, post)
	})
}

func TestNew_RejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := New("ftp://example.com/wp-json", nil, nil)
	require.Error(t, err)
}
