package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHTML(t *testing.T) {
	t.Parallel()

	t.Run("strips non-content nodes", func(t *testing.T) {
		t.Parallel()

		html := `<html><head>
			<style>body { color: red; }</style>
			<script>alert("hi")</script>
		</head><body>
			<h1>Breaking News</h1>
			<noscript>enable js</noscript>
			<p>Something   happened
			today.</p>
			<iframe src="ad.html"></iframe>
		</body></html>`

		text, err := CleanHTML(html)
		require.NoError(t, err)

		assert.Equal(t, "Breaking News Something happened today.", text)
		assert.NotContains(t, text, "alert")
		assert.NotContains(t, text, "color: red")
		assert.NotContains(t, text, "enable js")
	})

	t.Run("script only page yields empty text", func(t *testing.T) {
		t.Parallel()

		text, err := CleanHTML(`<html><body><script>var x = 1;</script></body></html>`)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("plain text without body falls back to document text", func(t *testing.T) {
		t.Parallel()

		text, err := CleanHTML("just plain text")
		require.NoError(t, err)
		assert.Equal(t, "just plain text", text)
	})
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	k1 := cacheKey("https://example.com/a")
	k2 := cacheKey("https://example.com/a")
	k3 := cacheKey("https://example.com/b")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, len(k1) < 64)
	assert.Contains(t, k1, "article:")
}
