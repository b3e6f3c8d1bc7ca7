package media

import (
	"net/url"
	"strings"
)

// DefaultBlockedPaths are image paths that never make a useful post image:
// core emoji, smilies, avatars and tracking pixels.
var DefaultBlockedPaths = []string{
	"/wp-includes/images/smilies/",
	"/images/core/emoji/",
	"gravatar.com/avatar",
	"/pixel.gif",
	"/wp-content/plugins/",
}

// URLFilter rejects image URLs by host and path fragments.
type URLFilter struct {
	// Domain limits AllowedPaths to one host; empty applies them everywhere.
	Domain       string
	AllowedPaths []string
	// BlockedPaths take priority over AllowedPaths.
	BlockedPaths []string
}

// Allow reports whether u may be used as an image.
func (f URLFilter) Allow(u string) bool {
	for _, blocked := range f.BlockedPaths {
		if strings.Contains(u, blocked) {
			return false
		}
	}

	if len(f.AllowedPaths) == 0 {
		return true
	}
	if f.Domain != "" {
		parsed, err := url.Parse(u)
		if err != nil || !strings.HasSuffix(parsed.Hostname(), f.Domain) {
			return true
		}
	}
	for _, allowed := range f.AllowedPaths {
		if strings.Contains(u, allowed) {
			return true
		}
	}
	return false
}

// WithFilter replaces the content-image filter.
func WithFilter(f URLFilter) Option {
	return func(r *Resolver) {
		r.filter = f
	}
}
