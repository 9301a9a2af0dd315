package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object",
			in:   `{"title":"a"}`,
			want: `{"title":"a"}`,
		},
		{
			name: "fenced code block",
			in:   "```json\n{\"title\":\"a\"}\n```",
			want: `{"title":"a"}`,
		},
		{
			name: "surrounding prose",
			in:   `Here is the result: {"answer":"42","source":"x"} hope it helps`,
			want: `{"answer":"42","source":"x"}`,
		},
		{
			name: "array value",
			in:   `noise [1, 2, 3] trailing`,
			want: `[1, 2, 3]`,
		},
		{
			name: "nested braces",
			in:   `{"a":{"b":"c"}}`,
			want: `{"a":{"b":"c"}}`,
		},
		{
			name: "empty input",
			in:   "   ",
			want: "",
		},
		{
			name: "no json at all",
			in:   "just some text",
			want: "just some text",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractJSONObject(tt.in))
		})
	}
}
