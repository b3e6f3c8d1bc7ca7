package wordpress

import (
	"strings"
	"time"

	"gopress/internal/content"
)

// rendered is WordPress' wrapper around HTML fields.
type rendered struct {
	Rendered string `json:"rendered"`
}

type wpMedia struct {
	SourceURL string `json:"source_url"`
}

type wpEmbedded struct {
	// Entries can be error objects when the attachment is private; those
	// decode with an empty SourceURL.
	FeaturedMedia []wpMedia `json:"wp:featuredmedia"`
}

type yoastImage struct {
	URL string `json:"url"`
}

type yoastHead struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	OGImage     []yoastImage `json:"og_image"`
}

type wpPost struct {
	ID         int        `json:"id"`
	Slug       string     `json:"slug"`
	Link       string     `json:"link"`
	Date       string     `json:"date"`
	DateGMT    string     `json:"date_gmt"`
	Title      rendered   `json:"title"`
	Excerpt    rendered   `json:"excerpt"`
	Content    rendered   `json:"content"`
	Categories []int      `json:"categories"`
	Yoast      *yoastHead `json:"yoast_head_json"`
	Embedded   wpEmbedded `json:"_embedded"`
}

type wpCategory struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// wpError is the body WordPress sends with 4xx/5xx responses.
type wpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// codeInvalidPage is returned when page exceeds the listing's page count.
const codeInvalidPage = "rest_post_invalid_page_number"

// wpTimeLayout is the REST API's date format (no zone).
const wpTimeLayout = "2006-01-02T15:04:05"

func (p wpPost) toPost() content.Post {
	post := content.Post{
		ID:          p.ID,
		Slug:        p.Slug,
		Link:        p.Link,
		Title:       p.Title.Rendered,
		ExcerptHTML: p.Excerpt.Rendered,
		ContentHTML: p.Content.Rendered,
		CategoryIDs: append([]int(nil), p.Categories...),
		PublishedAt: parseDate(p.DateGMT, p.Date),
	}

	if len(p.Embedded.FeaturedMedia) > 0 {
		post.FeaturedImageURL = strings.TrimSpace(p.Embedded.FeaturedMedia[0].SourceURL)
	}

	if p.Yoast != nil {
		post.SEO = content.SEO{
			Title:       p.Yoast.Title,
			Description: p.Yoast.Description,
		}
		if len(p.Yoast.OGImage) > 0 {
			post.SEO.OGImage = p.Yoast.OGImage[0].URL
		}
	}

	return post
}

func (c wpCategory) toCategory() content.Category {
	return content.Category{
		ID:    c.ID,
		Name:  c.Name,
		Slug:  c.Slug,
		Count: c.Count,
	}
}

// parseDate prefers the GMT field; the local one is read as UTC when it is
// the only value present.
func parseDate(gmt, local string) time.Time {
	for _, v := range []string{gmt, local} {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if t, err := time.Parse(wpTimeLayout, v); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
