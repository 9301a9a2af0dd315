// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"
)

// Article 从网页抽取出的结构化文章。
// 四个字段缺一不可：抽取要么产出完整记录，要么失败。
type Article struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	URL           string `json:"url"`
	DatePublished string `json:"datePublished"`
}

// Validate 校验文章完整性
func (a *Article) Validate() error {
	if a == nil {
		return fmt.Errorf("article is nil")
	}
	var missing []string
	if strings.TrimSpace(a.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(a.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(a.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(a.DatePublished) == "" {
		missing = append(missing, "datePublished")
	}
	if len(missing) > 0 {
		return fmt.Errorf("article missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsComplete 判断文章是否完整（查询路径用于校验检索 payload）
func (a *Article) IsComplete() bool {
	return a.Validate() == nil
}
