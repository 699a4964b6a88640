// Package render turns markdown document text into HTML. It is a read-only
// collaborator: it consumes final text and never mutates workspace state.
package render

import (
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const extensions = parser.CommonExtensions |
	parser.Tables |
	parser.FencedCode |
	parser.Autolink |
	parser.Strikethrough |
	parser.SpaceHeadings |
	parser.HeadingIDs |
	parser.AutoHeadingIDs |
	parser.Footnotes |
	parser.OrderedListStart

// HTML renders document text to an HTML fragment.
func HTML(doc []byte) []byte {
	p := parser.NewWithExtensions(extensions)
	opts := mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	}
	return markdown.Render(p.Parse(doc), mdhtml.NewRenderer(opts))
}
