// Package related picks "more like this" posts for an article view.
package related

import (
	"math/rand/v2"

	"gopress/internal/content"
)

// DefaultCount is how many related posts an article shows.
const DefaultCount = 2

// Candidates returns the posts of corpus that share focal's primary category,
// excluding focal itself and duplicate ids, in corpus order.
func Candidates(focal content.Post, corpus []content.Post) []content.Post {
	primary, ok := focal.PrimaryCategory()
	if !ok {
		return []content.Post{}
	}

	seen := map[int]bool{focal.ID: true}
	out := make([]content.Post, 0, len(corpus))
	for _, p := range corpus {
		if seen[p.ID] || !p.InCategory(primary) {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Sample draws at most n candidates without replacement. The result order is
// not meaningful. rng may be nil, in which case the global source is used.
func Sample(focal content.Post, corpus []content.Post, n int, rng *rand.Rand) []content.Post {
	pool := Candidates(focal, corpus)
	if n <= 0 {
		return []content.Post{}
	}
	if len(pool) <= n {
		return pool
	}

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	// partial Fisher-Yates: the first n slots end up a uniform sample
	for i := 0; i < n; i++ {
		j := i + intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
