package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticle_Validate(t *testing.T) {
	t.Parallel()

	t.Run("complete article", func(t *testing.T) {
		t.Parallel()

		a := Article{
			Title:         "T",
			Content:       "C",
			URL:           "https://example.com",
			DatePublished: "2024-01-01",
		}
		assert.NoError(t, a.Validate())
		assert.True(t, a.IsComplete())
	})

	t.Run("missing fields are named", func(t *testing.T) {
		t.Parallel()

		a := Article{Content: "C"}
		err := a.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "title")
		assert.Contains(t, err.Error(), "url")
		assert.Contains(t, err.Error(), "datePublished")
		assert.NotContains(t, err.Error(), "content")
		assert.False(t, a.IsComplete())
	})

	t.Run("whitespace counts as missing", func(t *testing.T) {
		t.Parallel()

		a := Article{Title: "  ", Content: "C", URL: "u", DatePublished: "d"}
		assert.Error(t, a.Validate())
	})

	t.Run("nil article", func(t *testing.T) {
		t.Parallel()

		var a *Article
		assert.Error(t, a.Validate())
	})
}

func TestArticle_JSONFieldNames(t *testing.T) {
	t.Parallel()

	a := Article{
		Title:         "T",
		Content:       "C",
		URL:           "https://example.com",
		DatePublished: "2024-01-01",
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"title": "T",
		"content": "C",
		"url": "https://example.com",
		"datePublished": "2024-01-01"
	}`, string(data))
}
