package pkg

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// SanitizeHTML 保留用户内容里的常规标签，去掉脚本和事件属性
func SanitizeHTML(val string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(val))
}

// PlainText 去掉全部标签
func PlainText(val string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(val)))
}
