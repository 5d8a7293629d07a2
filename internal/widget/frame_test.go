package widget

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFrame(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "clock",
		`<!-- aspect-ratio: 16:9 --><div id="clock"></div>`,
		`#clock { color: red; }`,
		`document.getElementById("clock").textContent = "12:00";`)

	out, err := NewRegistry(root, zerolog.Nop()).RenderFrame("clock")
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, `<div id="clock"></div>`)
	assert.Contains(t, page, `<style>#clock { color: red; }</style>`)
	assert.Contains(t, page, `<script>document.getElementById("clock").textContent = "12:00";</script>`)
	assert.Less(t, strings.Index(page, "<style>"), strings.Index(page, "</head>"))
	assert.Less(t, strings.Index(page, `<div id="clock">`), strings.Index(page, "<script>"))
}

func TestRenderFrame_MarkupOnly(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "plain", `<p>hello</p>`, "", "")

	out, err := NewRegistry(root, zerolog.Nop()).RenderFrame("plain")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<p>hello</p>")
	assert.NotContains(t, string(out), "<style>")
	assert.NotContains(t, string(out), "<script>")
}

func TestRenderFrame_UnknownWidget(t *testing.T) {
	_, err := NewRegistry(t.TempDir(), zerolog.Nop()).RenderFrame("ghost")
	assert.ErrorIs(t, err, ErrWidgetNotFound)
}
