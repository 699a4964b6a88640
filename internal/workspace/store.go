// Package workspace holds the authoritative in-memory file set and the
// open-tab list for one editing session. The store is not synchronized;
// the owning session serializes all access, matching the single event
// pipeline the editor runs on.
package workspace

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/halvorsen/skald/internal/apperr"
	"github.com/halvorsen/skald/internal/checksum"
	"github.com/halvorsen/skald/internal/models"
)

// deletedPlaceholder replaces image references when the target is removed.
const deletedPlaceholder = "*(deleted: %s)*"

// Store is the name → file registry for a session.
type Store struct {
	files map[string]*models.WorkspaceFile
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{files: make(map[string]*models.WorkspaceFile)}
}

// Add registers a file under its own name. Collisions are rejected so the
// import flow can surface them to the user.
func (s *Store) Add(f models.WorkspaceFile) error {
	if _, exists := s.files[f.Name]; exists {
		return fmt.Errorf("workspace: add %s: %w", f.Name, apperr.ErrAlreadyExists)
	}
	f.UpdatedAt = time.Now()
	s.files[f.Name] = &f
	return nil
}

// AddUnique registers a file, auto-suffixing the name with a numeric
// counter until it is unique (index.md → index-1.md → index-2.md). Used by
// the new-document flow where a blocking collision prompt would be wrong.
// Returns the name actually used.
func (s *Store) AddUnique(f models.WorkspaceFile) string {
	name := f.Name
	stem, ext := models.Stem(name), models.Ext(name)
	for i := 1; ; i++ {
		if _, exists := s.files[name]; !exists {
			break
		}
		name = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	f.Name = name
	f.UpdatedAt = time.Now()
	s.files[name] = &f
	return name
}

// Get returns the file registered under name.
func (s *Store) Get(name string) (*models.WorkspaceFile, bool) {
	f, ok := s.files[name]
	return f, ok
}

// Names returns the current file name set.
func (s *Store) Names() map[string]struct{} {
	out := make(map[string]struct{}, len(s.files))
	for name := range s.files {
		out[name] = struct{}{}
	}
	return out
}

// List returns metadata for every file, sorted by name.
func (s *Store) List() []models.FileMetadata {
	out := make([]models.FileMetadata, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, models.FileMetadata{
			Name:      f.Name,
			Kind:      f.Kind,
			Size:      len(f.Content),
			Checksum:  checksum.Sum(f.Content),
			UpdatedAt: f.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateContent is the write-through target for buffer edits.
func (s *Store) UpdateContent(name string, content []byte) error {
	f, ok := s.files[name]
	if !ok {
		return fmt.Errorf("workspace: update %s: %w", name, apperr.ErrNotFound)
	}
	f.Content = content
	f.UpdatedAt = time.Now()
	return nil
}

// Rename changes a file's key and rewrites references to it in every
// markdown body: image links get the new target with a label derived from
// the new name, and a cover-asset line pointing at the old name is updated.
func (s *Store) Rename(oldName, newName string) error {
	f, ok := s.files[oldName]
	if !ok {
		return fmt.Errorf("workspace: rename %s: %w", oldName, apperr.ErrNotFound)
	}
	if _, exists := s.files[newName]; exists {
		return fmt.Errorf("workspace: rename to %s: %w", newName, apperr.ErrAlreadyExists)
	}

	delete(s.files, oldName)
	f.Name = newName
	f.Kind = models.KindForName(newName)
	f.UpdatedAt = time.Now()
	s.files[newName] = f

	label := models.Stem(newName)
	imageRef := regexp.MustCompile(`!\[[^\]]*\]\(` + regexp.QuoteMeta(oldName) + `\)`)
	coverLine := regexp.MustCompile(`(?m)^(\s*-\s*)` + regexp.QuoteMeta(oldName) + `\s*$`)
	s.rewriteMarkdown(func(body string) string {
		body = imageRef.ReplaceAllString(body, fmt.Sprintf("![%s](%s)", label, newName))
		body = coverLine.ReplaceAllString(body, "${1}"+newName)
		return body
	})
	return nil
}

// Remove deletes a file. Removing an image rewrites every markdown body:
// image references become a visible deleted placeholder and a cover-asset
// line pointing at it is blanked back to a bare list marker.
func (s *Store) Remove(name string) error {
	f, ok := s.files[name]
	if !ok {
		return fmt.Errorf("workspace: remove %s: %w", name, apperr.ErrNotFound)
	}
	delete(s.files, name)

	switch f.Kind {
	case models.KindImage:
		imageRef := regexp.MustCompile(`!\[[^\]]*\]\(` + regexp.QuoteMeta(name) + `\)`)
		coverLine := regexp.MustCompile(`(?m)^(\s*-\s*)` + regexp.QuoteMeta(name) + `\s*$`)
		s.rewriteMarkdown(func(body string) string {
			body = imageRef.ReplaceAllString(body, fmt.Sprintf(deletedPlaceholder, name))
			body = coverLine.ReplaceAllString(body, "${1}")
			return body
		})
	case models.KindMarkdown, models.KindOther:
		// No reference cleanup: only image references are rendered inline.
	}
	return nil
}

// Snapshot returns a copy of the full name → content map for packaging.
func (s *Store) Snapshot() map[string][]byte {
	out := make(map[string][]byte, len(s.files))
	for name, f := range s.files {
		c := make([]byte, len(f.Content))
		copy(c, f.Content)
		out[name] = c
	}
	return out
}

// rewriteMarkdown applies fn to the body of every markdown file, writing
// back only when the content actually changed.
func (s *Store) rewriteMarkdown(fn func(string) string) {
	for _, f := range s.files {
		if f.Kind != models.KindMarkdown {
			continue
		}
		old := string(f.Content)
		if updated := fn(old); updated != old {
			f.Content = []byte(updated)
			f.UpdatedAt = time.Now()
		}
	}
}
