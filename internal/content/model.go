// Package content holds the domain types shared by the gateway, the caches
// and the browsing controller.
package content

import (
	"strconv"
	"time"
)

// FilterKey selects either all posts or a single category.
// WordPress category ids are positive, so the zero value means "all".
type FilterKey int

// AllPosts is the unfiltered listing.
const AllPosts FilterKey = 0

// CategoryKey returns the filter key for a category id.
func CategoryKey(id int) FilterKey {
	return FilterKey(id)
}

// IsAll reports whether k is the unfiltered listing.
func (k FilterKey) IsAll() bool {
	return k == AllPosts
}

// CategoryID returns the category id and false for AllPosts.
func (k FilterKey) CategoryID() (int, bool) {
	if k.IsAll() {
		return 0, false
	}
	return int(k), true
}

func (k FilterKey) String() string {
	if k.IsAll() {
		return "all"
	}
	return strconv.Itoa(int(k))
}

// ParseFilterKey accepts "all", "" or a positive category id.
func ParseFilterKey(s string) (FilterKey, error) {
	if s == "" || s == "all" {
		return AllPosts, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return AllPosts, &InvalidFilterError{Value: s}
	}
	return CategoryKey(id), nil
}

// InvalidFilterError is returned by ParseFilterKey.
type InvalidFilterError struct {
	Value string
}

func (e *InvalidFilterError) Error() string {
	return "invalid filter key " + strconv.Quote(e.Value)
}

// Post is a fetched article. It is never mutated after decoding.
type Post struct {
	ID          int
	Slug        string
	Link        string
	Title       string
	ExcerptHTML string
	ContentHTML string
	// CategoryIDs keeps upstream order; the first entry is the primary category.
	CategoryIDs []int
	// FeaturedImageURL is empty when the post has no embedded media.
	FeaturedImageURL string
	PublishedAt      time.Time
	SEO              SEO
}

// SEO is the optional metadata block some sites attach to posts.
type SEO struct {
	Title       string
	Description string
	OGImage     string
}

// PrimaryCategory returns the first category id.
func (p Post) PrimaryCategory() (int, bool) {
	if len(p.CategoryIDs) == 0 {
		return 0, false
	}
	return p.CategoryIDs[0], true
}

// InCategory reports whether the post is tagged with id.
func (p Post) InCategory(id int) bool {
	for _, c := range p.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Category is read-only reference data.
type Category struct {
	ID    int
	Name  string
	Slug  string
	Count int
}

// PostPage is one page of a listing.
type PostPage struct {
	Posts []Post
	// TotalPages is the upstream's page count for the query, 0 when unknown.
	TotalPages int
}

// IsLast reports whether p, fetched as page number page, ends the listing.
// A short page ends it even when TotalPages is unknown.
func (p PostPage) IsLast(page, pageSize int) bool {
	if len(p.Posts) < pageSize {
		return true
	}
	return p.TotalPages > 0 && page >= p.TotalPages
}
