// Package chunk 提供文章内容切片
package chunk

import (
	"strings"
)

const (
	// DefaultSize 默认切片长度（按 rune 计）
	DefaultSize = 512
	// DefaultOverlap 默认相邻切片重叠长度
	DefaultOverlap = 64
)

// Split 将文本按句子边界切成带重叠的片段。
// 纯函数：同样的输入总是产出同样的切片序列。
//
// 规则：
//   - 以 ". " 为句子分隔符，切片在句子边界处断开；
//   - 每片不超过 size 个 rune（单句超长时整句作为一片，不在句中截断）；
//   - 每个后续切片以前一片的末尾 overlap 个 rune 开头，保持跨片语境连续；
//   - 空白输入返回 nil。
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []rune
	carry := 0 // current 开头来自上一片尾部的重叠长度

	flush := func() {
		// 只剩上一片的重叠尾部、没有任何新句子时不产出切片
		if len(current) <= carry {
			return
		}
		chunks = append(chunks, string(current))

		// 下一片以本片尾部 overlap 个 rune 开头
		tail := overlap
		if tail > len(current) {
			tail = len(current)
		}
		carried := make([]rune, tail)
		copy(carried, current[len(current)-tail:])
		current = carried
		carry = tail
	}

	for _, sentence := range sentences {
		runes := []rune(sentence)

		if len(current)+len(runes) > size {
			flush()
		}
		current = append(current, runes...)

		// 单句已超长：整句成片，不再继续拼接
		if len(current) >= size {
			flush()
		}
	}

	if len(current) > carry {
		chunks = append(chunks, string(current))
	}

	return chunks
}

// splitSentences 按 ". " 切句，分隔符保留在句尾
func splitSentences(text string) []string {
	parts := strings.SplitAfter(text, ". ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
