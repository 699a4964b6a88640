// Package models defines the domain types for Skald.
package models

import (
	"fmt"
	"strings"
	"time"
)

// FileKind is the closed set of file categories in a workspace.
type FileKind int

const (
	KindMarkdown FileKind = iota
	KindImage
	KindOther
)

// String returns the wire name of the kind.
func (k FileKind) String() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindImage:
		return "image"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("FileKind(%d)", int(k))
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k FileKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// imageExts is the raster/vector suffix set used for classification.
var imageExts = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "svg": {}, "webp": {},
}

// KindForName classifies a file name by extension.
func KindForName(name string) FileKind {
	ext := strings.ToLower(strings.TrimPrefix(Ext(name), "."))
	if ext == "md" || ext == "markdown" {
		return KindMarkdown
	}
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}
	return KindOther
}

// IsImageName reports whether name carries a known image extension.
func IsImageName(name string) bool {
	return KindForName(name) == KindImage
}

// Ext returns the extension of name including the leading dot, or "".
func Ext(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 && i < len(name)-1 {
		return name[i:]
	}
	return ""
}

// Stem returns the file name without its extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, Ext(name))
}

// WorkspaceFile is one entry in the session file set. Content holds UTF-8
// text for markdown files and raw bytes for everything else.
type WorkspaceFile struct {
	Name           string    `json:"name"`
	Kind           FileKind  `json:"kind"`
	Content        []byte    `json:"-"`
	IsNewlyCreated bool      `json:"is_newly_created"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FileMetadata is a lightweight representation returned by list operations.
type FileMetadata struct {
	Name      string    `json:"name"`
	Kind      FileKind  `json:"kind"`
	Size      int       `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tab mirrors one open markdown document. ID equals the file name.
type Tab struct {
	ID      string `json:"id"`
	Content string `json:"-"`
}

// MissingResource is a locally referenced asset absent from the file set.
// It is always a recomputed projection, never stored.
type MissingResource struct {
	Name string   `json:"name"`
	Kind FileKind `json:"kind"`
}
