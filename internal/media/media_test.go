package media

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gopress/internal/content"
)

func TestFeaturedImage(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("https://blog.example/news/")
	require.NoError(t, err)

	tests := []struct {
		name string
		post content.Post
		want string
	}{
		{
			name: "absolute url kept",
			post: content.Post{FeaturedImageURL: "https://cdn.example/a.jpg"},
			want: "https://cdn.example/a.jpg",
		},
		{
			name: "root relative resolved against site",
			post: content.Post{FeaturedImageURL: "/wp-content/uploads/a.jpg"},
			want: "https://blog.example/wp-content/uploads/a.jpg",
		},
		{
			name: "protocol relative",
			post: content.Post{FeaturedImageURL: "//cdn.example/b.png"},
			want: "https://cdn.example/b.png",
		},
		{
			name: "absent media uses placeholder",
			post: content.Post{ContentHTML: `<p><img src="https://blog.example/inline.jpg"></p>`},
			want: DefaultPlaceholder,
		},
		{
			name: "blank media uses placeholder",
			post: content.Post{FeaturedImageURL: "   "},
			want: DefaultPlaceholder,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, r.FeaturedImage(tt.post))
		})
	}
}

func TestFeaturedImage_CustomPlaceholder(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("", WithPlaceholder("/static/none.png"))
	require.NoError(t, err)
	require.Equal(t, "/static/none.png", r.Placeholder())
	require.Equal(t, "/static/none.png", r.FeaturedImage(content.Post{}))
}

func TestFeaturedImage_ContentFallback(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("https://blog.example", WithContentFallback(true))
	require.NoError(t, err)

	post := content.Post{ContentHTML: `
		<p><img src="data:image/gif;base64,R0lGOD"></p>
		<figure><img src="/uploads/first.jpg"></figure>
		<img src="https://cdn.example/second.jpg">`}
	require.Equal(t, "https://blog.example/uploads/first.jpg", r.FeaturedImage(post))

	require.Equal(t, DefaultPlaceholder, r.FeaturedImage(content.Post{ContentHTML: "<p>no images</p>"}))
}

func TestContentImages(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("https://blog.example/")
	require.NoError(t, err)

	got := r.ContentImages(`<img src="a.jpg"><img><img src="/b/c.png"><img src="//x.example/d.gif">`)
	require.Equal(t, []string{
		"https://blog.example/b/c.png",
		"https://x.example/d.gif",
	}, got)
	require.Nil(t, r.ContentImages(""))
}

func TestContentImages_Filtered(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("https://blog.example", WithContentFallback(true))
	require.NoError(t, err)

	post := content.Post{ContentHTML: `
		<p><img src="https://s.w.org/images/core/emoji/15.0.3/72x72/1f600.png"></p>
		<img src="https://secure.gravatar.com/avatar/abc?s=96">
		<img src="/uploads/real.jpg">`}
	require.Equal(t, "https://blog.example/uploads/real.jpg", r.FeaturedImage(post))
}

func TestURLFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter URLFilter
		url    string
		want   bool
	}{
		{"no rules", URLFilter{}, "https://a.example/x.jpg", true},
		{"blocked", URLFilter{BlockedPaths: []string{"/ads/"}}, "https://a.example/ads/x.jpg", false},
		{"allowed path", URLFilter{AllowedPaths: []string{"/uploads/"}}, "https://a.example/uploads/x.jpg", true},
		{"outside allowed", URLFilter{AllowedPaths: []string{"/uploads/"}}, "https://a.example/theme/x.jpg", false},
		{"other domain ignores allow list", URLFilter{Domain: "a.example", AllowedPaths: []string{"/uploads/"}}, "https://cdn.example/theme/x.jpg", true},
		{"block beats allow", URLFilter{AllowedPaths: []string{"/uploads/"}, BlockedPaths: []string{"pixel"}}, "https://a.example/uploads/pixel.gif", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.filter.Allow(tt.url))
		})
	}
}
