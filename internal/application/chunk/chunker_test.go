package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Split("", 512, 64))
	assert.Nil(t, Split("   \n\t  ", 512, 64))
}

func TestSplit_ShortText(t *testing.T) {
	t.Parallel()

	text := "A single short sentence."
	chunks := Split("  "+text+"  ", 512, 64)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_SentenceBoundaries(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString(fmt.Sprintf("This is sentence number %02d of the test article. ", i))
	}
	text := strings.TrimSpace(sb.String())

	const size, overlap = 120, 20
	chunks := Split(text, size, overlap)

	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), size, "chunk %d exceeds size", i)
		assert.Contains(t, text, strings.TrimSpace(c), "chunk %d is not a contiguous piece of the input", i)
	}

	// 后续切片以前一片末尾 overlap 个 rune 开头
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := overlap
		if tail > len(prev) {
			tail = len(prev)
		}
		assert.True(t, strings.HasPrefix(chunks[i], string(prev[len(prev)-tail:])),
			"chunk %d does not carry the previous chunk's tail", i)
	}

	// 每个句子都落进了至少一个切片
	for i := 0; i < 40; i++ {
		marker := fmt.Sprintf("sentence number %02d", i)
		found := false
		for _, c := range chunks {
			if strings.Contains(c, marker) {
				found = true
				break
			}
		}
		assert.True(t, found, "sentence %d lost during chunking", i)
	}
}

func TestSplit_RoundTripReconstruction(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := 0; i < 25; i++ {
		sb.WriteString(fmt.Sprintf("Reconstruction sentence %02d keeps the article whole. ", i))
	}
	text := strings.TrimSpace(sb.String())

	const size, overlap = 150, 30
	chunks := Split(text, size, overlap)
	require.Greater(t, len(chunks), 1)

	// 去掉每片开头携带的上一片尾部再拼接，应精确还原原文
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		carried := overlap
		if carried > len(prev) {
			carried = len(prev)
		}
		rebuilt.WriteString(string([]rune(chunks[i])[carried:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_NoOverlapOnlyChunks(t *testing.T) {
	t.Parallel()

	// 重叠尾部后面紧跟放不下的句子时，尾部不能单独成片
	chunks := Split("abcdefgh. yyyyyyyyy", 10, 5)
	require.Equal(t, []string{"abcdefgh. ", "fgh. yyyyyyyyy"}, chunks)

	// 任何切片都必须带有上一片重叠之外的新内容
	for i := 1; i < len(chunks); i++ {
		assert.False(t, strings.HasSuffix(chunks[i-1], chunks[i]),
			"chunk %d is a pure copy of the previous chunk's tail", i)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Alpha beta gamma delta. ", 30)
	first := Split(text, 100, 10)
	second := Split(text, 100, 10)
	assert.Equal(t, first, second)
}

func TestSplit_OversizedSentence(t *testing.T) {
	t.Parallel()

	// 没有句子边界的超长文本：整体作为单片，不在句中截断
	text := strings.Repeat("x", 300)
	chunks := Split(text, 100, 10)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_OverlapClamped(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Short one. ", 20)
	chunks := Split(text, 10, 50)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, c)
	}
}

func TestSplit_DefaultsApplied(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Sentence here. ", 10)
	chunks := Split(text, 0, -5)

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0])
}
