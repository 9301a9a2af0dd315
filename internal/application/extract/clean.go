package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML 将页面 HTML 清洗为纯文本。
// 去掉脚本、样式等非正文节点，折叠空白。
func CleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, iframe, svg, template").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	return collapseWhitespace(text), nil
}

// collapseWhitespace 折叠连续空白为单个空格
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cacheKey URL 哈希后的缓存键，避免超长键
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "article:" + hex.EncodeToString(sum[:16])
}
