package session

import (
	"context"
	"fmt"
	"regexp"

	"github.com/halvorsen/skald/internal/apperr"
	"github.com/halvorsen/skald/internal/models"
)

// FormatKind names a formatting command applied to the current selection.
type FormatKind string

const (
	FormatBold      FormatKind = "bold"
	FormatItalic    FormatKind = "italic"
	FormatStrike    FormatKind = "strike"
	FormatHeading   FormatKind = "heading"
	FormatList      FormatKind = "list"
	FormatLink      FormatKind = "link"
	FormatCode      FormatKind = "code"
	FormatSeparator FormatKind = "more"
)

// markers returns the prefix and suffix wrapped around the selection.
func (k FormatKind) markers() (string, string, bool) {
	switch k {
	case FormatBold:
		return "**", "**", true
	case FormatItalic:
		return "*", "*", true
	case FormatStrike:
		return "~~", "~~", true
	case FormatHeading:
		return "## ", "", true
	case FormatList:
		return "- ", "", true
	case FormatLink:
		return "[", "](url)", true
	case FormatCode:
		return "`", "`", true
	case FormatSeparator:
		return "<!-- more -->", "", true
	default:
		return "", "", false
	}
}

// InsertFormat wraps or prefixes the selection [selStart, selEnd) of the
// active buffer with the command's markers and commits the result through
// the standard edit pipeline, so every formatting action is individually
// undoable. The caret lands after the inserted text.
func (s *Session) InsertFormat(_ context.Context, kind FormatKind, selStart, selEnd int) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.tabs.ActiveContent()
	if err != nil {
		return nil, err
	}
	selStart, selEnd = clampSelection(content, selStart, selEnd)

	prefix, suffix, ok := kind.markers()
	if !ok {
		return nil, fmt.Errorf("session: unknown format %q", kind)
	}

	selected := content[selStart:selEnd]
	var inserted string
	if kind == FormatSeparator {
		// The separator replaces the selection rather than wrapping it.
		inserted = prefix
	} else {
		inserted = prefix + selected + suffix
	}

	updated := content[:selStart] + inserted + content[selEnd:]
	caret := selStart + len(inserted)
	return s.editLocked(updated, caret)
}

// Paste link synthesis: a URL, an optional extraction code phrase, and an
// optional quoted or bracketed title pulled from pasted plain text.
var (
	pasteURLRe   = regexp.MustCompile(`https?://[^\s)>"']+`)
	pasteCodeRe  = regexp.MustCompile(`(?i)(?:extraction code|access code|code)\s*[:：]\s*([A-Za-z0-9]{3,8})`)
	pasteTitleRe = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|\[([^\]\[]+)\]`)
)

// genericLinkLabel is used when the pasted text carries no usable title.
const genericLinkLabel = "link"

// SynthesizeLink pattern-matches pasted plain text. When a URL is found it
// returns a markdown link whose label combines the detected title and/or
// extraction code; the second return is false when the text has no URL and
// the paste should proceed as plain text.
func SynthesizeLink(text string) (string, bool) {
	url := pasteURLRe.FindString(text)
	if url == "" {
		return "", false
	}

	label := genericLinkLabel
	if m := pasteTitleRe.FindStringSubmatch(text); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				label = g
				break
			}
		}
	}
	if m := pasteCodeRe.FindStringSubmatch(text); m != nil {
		if label == genericLinkLabel {
			label = "code " + m[1]
		} else {
			label = fmt.Sprintf("%s (code %s)", label, m[1])
		}
	}
	return fmt.Sprintf("[%s](%s)", label, url), true
}

// PasteText handles a paste into the selection. Text matching the link
// pattern is replaced by the synthesized markdown link (when confirm is
// true); anything else is inserted verbatim. Either way the result flows
// through the standard edit pipeline.
func (s *Session) PasteText(_ context.Context, text string, selStart, selEnd int, confirm bool) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.tabs.ActiveContent()
	if err != nil {
		return nil, err
	}
	selStart, selEnd = clampSelection(content, selStart, selEnd)

	inserted := text
	if confirm {
		if link, ok := SynthesizeLink(text); ok {
			inserted = link
		}
	}

	updated := content[:selStart] + inserted + content[selEnd:]
	return s.editLocked(updated, selStart+len(inserted))
}

// DropImage inserts an image reference to a known workspace image at the
// drop position. Unknown names are rejected; external file drops go
// through the import flow instead.
func (s *Session) DropImage(_ context.Context, name string, pos int) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("session: drop %s: %w", name, apperr.ErrNotFound)
	}
	if f.Kind != models.KindImage {
		return nil, fmt.Errorf("session: drop %s: not an image", name)
	}

	content, err := s.tabs.ActiveContent()
	if err != nil {
		return nil, err
	}
	pos, _ = clampSelection(content, pos, pos)

	ref := fmt.Sprintf("![%s](%s)", models.Stem(name), name)
	updated := content[:pos] + ref + content[pos:]
	return s.editLocked(updated, pos+len(ref))
}

// clampSelection bounds a selection to the buffer and orders its ends.
func clampSelection(content string, start, end int) (int, int) {
	n := len(content)
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}
