// Package media resolves the display image of a post.
package media

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gopress/internal/content"
)

// DefaultPlaceholder is shown when a post has no usable image.
const DefaultPlaceholder = "/default.jpg"

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlaceholder overrides the placeholder image reference.
func WithPlaceholder(ref string) Option {
	return func(r *Resolver) {
		if ref = strings.TrimSpace(ref); ref != "" {
			r.placeholder = ref
		}
	}
}

// WithContentFallback makes posts without featured media use the first image
// found in their content before falling back to the placeholder.
func WithContentFallback(enabled bool) Option {
	return func(r *Resolver) {
		r.contentFallback = enabled
	}
}

// Resolver turns post media fields into an image reference that is never empty.
type Resolver struct {
	base            *url.URL
	placeholder     string
	contentFallback bool
	filter          URLFilter
}

// NewResolver creates a Resolver. siteURL is used to absolutize relative
// media paths and may be empty.
func NewResolver(siteURL string, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		placeholder: DefaultPlaceholder,
		filter:      URLFilter{BlockedPaths: DefaultBlockedPaths},
	}
	if siteURL != "" {
		u, err := url.Parse(siteURL)
		if err != nil {
			return nil, err
		}
		r.base = u
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Placeholder returns the configured placeholder reference.
func (r *Resolver) Placeholder() string {
	return r.placeholder
}

// FeaturedImage returns the image to display for p.
func (r *Resolver) FeaturedImage(p content.Post) string {
	if u := r.absolute(p.FeaturedImageURL); u != "" {
		return u
	}
	if r.contentFallback {
		if imgs := r.ContentImages(p.ContentHTML); len(imgs) > 0 {
			return imgs[0]
		}
	}
	return r.placeholder
}

// ContentImages collects usable <img src> values from an HTML body in
// document order.
func (r *Resolver) ContentImages(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var images []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		// Skip data URLs and very short URLs
		if strings.HasPrefix(src, "data:") || len(strings.TrimSpace(src)) < 6 {
			return
		}
		if u := r.absolute(src); u != "" && r.filter.Allow(u) {
			images = append(images, u)
		}
	})
	return images
}

// absolute resolves ref against the site URL. Protocol-relative references
// get https.
func (r *Resolver) absolute(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() || r.base == nil {
		return parsed.String()
	}
	return r.base.ResolveReference(parsed).String()
}
