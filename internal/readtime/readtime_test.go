package readtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestMinutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty body", body: "", want: 1},
		{name: "markup only", body: "<p></p><img src=\"/a.jpg\">", want: 1},
		{name: "one word", body: "<p>hello</p>", want: 1},
		{name: "exactly 200", body: "<p>" + words(200) + "</p>", want: 1},
		{name: "201 rounds up", body: "<p>" + words(201) + "</p>", want: 2},
		{name: "exactly 400", body: "<p>" + words(400) + "</p>", want: 2},
		{name: "400 across blocks", body: "<h2>" + words(100) + "</h2><p>" + words(300) + "</p>", want: 2},
		{name: "401", body: "<div>" + words(401) + "</div>", want: 3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Minutes(tt.body))
		})
	}
}

func TestCountWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "adjacent blocks split", body: "<p>one</p><p>two</p>", want: 2},
		{name: "inline tags join", body: "<p>read<strong>ing</strong> is fun</p>", want: 3},
		{name: "line break splits", body: "one<br>two", want: 2},
		{name: "script ignored", body: "<p>a b</p><script>var x = 1 + 2;</script>", want: 2},
		{name: "entities", body: "<p>fish&nbsp;&amp;&nbsp;chips</p>", want: 3},
		{name: "comments ignored", body: "<!-- wp:paragraph --><p>x</p><!-- /wp:paragraph -->", want: 1},
		{name: "plain text", body: "  just   three words ", want: 3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, CountWords(tt.body))
		})
	}
}

func TestForWords(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, ForWords(0))
	require.Equal(t, 1, ForWords(1))
	require.Equal(t, 2, ForWords(400))
	require.Equal(t, 3, ForWords(401))
}
