// Package frontmatter provides a typed view over the YAML metadata block at
// the head of a markdown document. The raw text stays the source of truth:
// the view is parsed on demand and mutated only by rewriting the block.
package frontmatter

import (
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Data is the recognized front-matter field set. Unrecognized keys are
// carried through Extra so a rewrite never loses them.
type Data struct {
	Title      string         `yaml:"title,omitempty" json:"title,omitempty"`
	Date       string         `yaml:"date,omitempty" json:"date,omitempty"`
	Categories []string       `yaml:"categories,omitempty" json:"categories,omitempty"`
	Tags       []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Photos     []string       `yaml:"photos,omitempty" json:"photos,omitempty"`
	Extra      map[string]any `yaml:",inline" json:"extra,omitempty"`
}

// IsZero reports whether no recognized or extra field is set.
func (d Data) IsZero() bool {
	return d.Title == "" && d.Date == "" &&
		len(d.Categories) == 0 && len(d.Tags) == 0 &&
		len(d.Photos) == 0 && len(d.Extra) == 0
}

// Parse extracts the front-matter block and the remaining body. A missing
// or malformed block is not an error: the result is zero-valued Data and
// the full text as body.
func Parse(text string) (Data, string) {
	var d Data
	body, err := frontmatter.Parse(strings.NewReader(text), &d)
	if err != nil {
		return Data{}, text
	}
	return d, string(body)
}

// Rewrite replaces the document's front-matter block with a re-serialized
// form of d, keeping the body unchanged. A zero-valued d strips the block.
func Rewrite(text string, d Data) string {
	_, body := Parse(text)
	if d.IsZero() {
		return body
	}
	block, err := yaml.Marshal(d)
	if err != nil {
		return text
	}
	return "---\n" + string(block) + "---\n" + body
}
