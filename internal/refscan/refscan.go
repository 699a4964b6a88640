// Package refscan extracts local asset references from Markdown content and
// classifies them as present or missing against the workspace file set.
package refscan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/halvorsen/skald/internal/models"
)

var (
	imageRefRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)
	coverRe    = regexp.MustCompile(`(?m)^photos:[ \t]*\n[ \t]*-[ \t]*(.*)$`)
)

// networkSchemes are reference targets resolved over the network rather
// than against the workspace file set.
var networkSchemes = []string{"http://", "https://", "ftp://"}

func isNetwork(target string) bool {
	lower := strings.ToLower(target)
	for _, s := range networkSchemes {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// References returns the deduplicated local targets referenced by text:
// inline image links plus the front-matter cover asset. Network URIs and
// the bare "-" placeholder are excluded. Order is first occurrence.
func References(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(target string) {
		target = strings.TrimSpace(target)
		if target == "" || isNetwork(target) {
			return
		}
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}

	for _, m := range imageRefRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	if m := coverRe.FindStringSubmatch(text); m != nil {
		add(m[1])
	}
	return out
}

// Missing reports every local reference in text that has no entry in the
// file set, classified by extension. Pure: identical inputs always yield
// the same result, and the output is order-normalized for set comparison.
func Missing(text string, files map[string]struct{}) []models.MissingResource {
	var out []models.MissingResource
	for _, ref := range References(text) {
		if _, ok := files[ref]; ok {
			continue
		}
		kind := models.KindOther
		if models.IsImageName(ref) {
			kind = models.KindImage
		}
		out = append(out, models.MissingResource{Name: ref, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
