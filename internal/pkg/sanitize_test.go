package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHTMLDropsScripts(t *testing.T) {
	out := SanitizeHTML(`<p>hello</p><script>alert(1)</script><img src="https://cdn.example.com/a.png" onerror="x()">`)

	assert.Contains(t, out, "<p>hello</p>")
	assert.Contains(t, out, `src="https://cdn.example.com/a.png"`)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onerror")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a < b & c", PlainText("<b>a &lt; b</b> &amp; c"))
}
