package workspace

import (
	"fmt"

	"github.com/halvorsen/skald/internal/apperr"
	"github.com/halvorsen/skald/internal/models"
)

// Tabs tracks which markdown documents are open and which one owns the
// editing buffer. A tab's id is the file name of the document it mirrors.
type Tabs struct {
	list   []*models.Tab
	active string
}

// NewTabs creates an empty tab list.
func NewTabs() *Tabs {
	return &Tabs{}
}

// Open creates a tab for name seeded with content, or reuses an existing
// one, and makes it active. Returns the tab's current content.
func (t *Tabs) Open(name, content string) string {
	for _, tab := range t.list {
		if tab.ID == name {
			t.active = name
			return tab.Content
		}
	}
	t.list = append(t.list, &models.Tab{ID: name, Content: content})
	t.active = name
	return content
}

// Switch activates the tab with the given id and returns its mirrored
// content for loading into the buffer.
func (t *Tabs) Switch(id string) (string, error) {
	for _, tab := range t.list {
		if tab.ID == id {
			t.active = id
			return tab.Content, nil
		}
	}
	return "", fmt.Errorf("workspace: switch tab %s: %w", id, apperr.ErrNotFound)
}

// Close removes the tab. Closing the active tab activates the first
// remaining tab; with no tabs left the buffer goes empty. Returns the new
// active tab id ("" when none) and its content.
func (t *Tabs) Close(id string) (string, string, error) {
	idx := -1
	for i, tab := range t.list {
		if tab.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", "", fmt.Errorf("workspace: close tab %s: %w", id, apperr.ErrNotFound)
	}
	t.list = append(t.list[:idx], t.list[idx+1:]...)

	if t.active != id {
		content, _ := t.contentOf(t.active)
		return t.active, content, nil
	}
	if len(t.list) == 0 {
		t.active = ""
		return "", "", nil
	}
	t.active = t.list[0].ID
	return t.active, t.list[0].Content, nil
}

// PropagateEdit mirrors a buffer change into the active tab.
func (t *Tabs) PropagateEdit(content string) error {
	tab := t.activeTab()
	if tab == nil {
		return fmt.Errorf("workspace: propagate edit: %w", apperr.ErrNoActiveTab)
	}
	tab.Content = content
	return nil
}

// Active returns the active tab id, or "" when no tab is open.
func (t *Tabs) Active() string { return t.active }

// ActiveContent returns the active tab's mirrored content.
func (t *Tabs) ActiveContent() (string, error) {
	tab := t.activeTab()
	if tab == nil {
		return "", fmt.Errorf("workspace: active content: %w", apperr.ErrNoActiveTab)
	}
	return tab.Content, nil
}

// MirrorContent overwrites a tab's mirrored content without touching the
// active selection. Used when a store cascade rewrote the file body.
func (t *Tabs) MirrorContent(id, content string) {
	for _, tab := range t.list {
		if tab.ID == id {
			tab.Content = content
		}
	}
}

// Rename updates the tab id when its file is renamed.
func (t *Tabs) Rename(oldID, newID string) {
	for _, tab := range t.list {
		if tab.ID == oldID {
			tab.ID = newID
		}
	}
	if t.active == oldID {
		t.active = newID
	}
}

// Has reports whether a tab with the given id is open.
func (t *Tabs) Has(id string) bool {
	for _, tab := range t.list {
		if tab.ID == id {
			return true
		}
	}
	return false
}

// List returns the open tabs in list order.
func (t *Tabs) List() []models.Tab {
	out := make([]models.Tab, len(t.list))
	for i, tab := range t.list {
		out[i] = *tab
	}
	return out
}

func (t *Tabs) activeTab() *models.Tab {
	for _, tab := range t.list {
		if tab.ID == t.active {
			return tab
		}
	}
	return nil
}

func (t *Tabs) contentOf(id string) (string, bool) {
	for _, tab := range t.list {
		if tab.ID == id {
			return tab.Content, true
		}
	}
	return "", false
}
