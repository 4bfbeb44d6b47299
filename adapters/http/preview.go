package http

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderDocument renders a document as a complete HTML page titled name.
// Fenced blocks, including the readerspec block, become <pre><code>.
func RenderDocument(name, content string) []byte {
	opts := html.RendererOptions{
		Title: name,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)

	// Parsers are single use.
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(content))
	return markdown.Render(doc, renderer)
}
