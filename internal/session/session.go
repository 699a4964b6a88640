// Package session implements the editing session controller: it owns one
// workspace's file store, open tabs, and per-tab undo histories, and routes
// every mutation through a single serialized pipeline so a content change
// always observes the most recently committed state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/halvorsen/skald/internal/apperr"
	"github.com/halvorsen/skald/internal/archive"
	"github.com/halvorsen/skald/internal/checksum"
	"github.com/halvorsen/skald/internal/frontmatter"
	"github.com/halvorsen/skald/internal/history"
	"github.com/halvorsen/skald/internal/importer"
	"github.com/halvorsen/skald/internal/index"
	"github.com/halvorsen/skald/internal/models"
	"github.com/halvorsen/skald/internal/refscan"
	"github.com/halvorsen/skald/internal/render"
	"github.com/halvorsen/skald/internal/sse"
	"github.com/halvorsen/skald/internal/workspace"
)

// Session is one in-memory workspace. All exported methods serialize on a
// single mutex, modeling the editor's single-threaded event loop: there is
// no background mutation and no torn write.
type Session struct {
	mu sync.Mutex

	id           string
	store        *workspace.Store
	tabs         *workspace.Tabs
	histories    map[string]*history.Stack
	pending      []importer.Incoming
	historyLimit int

	idx    index.DocumentIndex
	broker *sse.Broker

	lastUsed time.Time
}

// State is the controller's view consumed by the API layer after every
// operation: the active buffer, undo affordances, and the current
// missing-resource projection.
type State struct {
	ActiveTab string                   `json:"active_tab"`
	Content   string                   `json:"content"`
	Cursor    int                      `json:"cursor"`
	CanUndo   bool                     `json:"can_undo"`
	CanRedo   bool                     `json:"can_redo"`
	Tabs      []models.Tab             `json:"tabs"`
	Missing   []models.MissingResource `json:"missing"`
}

// New creates an empty session. idx and broker may be nil (library use,
// tests); historyLimit <= 0 falls back to the history default.
func New(id string, historyLimit int, idx index.DocumentIndex, broker *sse.Broker) *Session {
	return &Session{
		id:           id,
		store:        workspace.NewStore(),
		tabs:         workspace.NewTabs(),
		histories:    make(map[string]*history.Stack),
		historyLimit: historyLimit,
		idx:          idx,
		broker:       broker,
		lastUsed:     time.Now(),
	}
}

// ID returns the session's workspace id.
func (s *Session) ID() string { return s.id }

// LastUsed returns the time of the most recent operation.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// touch must be called with the mutex held.
func (s *Session) touch() { s.lastUsed = time.Now() }

// NewDocument creates a markdown file, auto-suffixing the name on
// collision, opens it as the active tab, and seeds its history.
func (s *Session) NewDocument(_ context.Context, name, content string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	clean, err := importer.CleanName(name)
	if err != nil {
		return nil, err
	}
	if models.KindForName(clean) != models.KindMarkdown {
		return nil, fmt.Errorf("session: new document %s: not a markdown name", clean)
	}

	final := s.store.AddUnique(models.WorkspaceFile{
		Name:           clean,
		Kind:           models.KindMarkdown,
		Content:        []byte(content),
		IsNewlyCreated: true,
	})
	s.tabs.Open(final, content)
	s.histories[final] = history.New(content, 0, s.historyLimit)

	s.reindex(final, content)
	s.publish("added", final)
	return s.state(), nil
}

// EditContent commits a buffer change: history push on the active tab's
// stack, mirror into the tab, write through to the store, reindex, and
// recompute the missing-resource projection.
func (s *Session) EditContent(_ context.Context, content string, cursor int) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editLocked(content, cursor)
}

// editLocked is the shared commit pipeline; the mutex must be held.
func (s *Session) editLocked(content string, cursor int) (*State, error) {
	s.touch()

	active := s.tabs.Active()
	if active == "" {
		return nil, fmt.Errorf("session: edit: %w", apperr.ErrNoActiveTab)
	}

	st, ok := s.histories[active]
	if !ok {
		st = history.New(content, cursor, s.historyLimit)
		s.histories[active] = st
	} else {
		st.Push(content, cursor)
	}

	if err := s.tabs.PropagateEdit(content); err != nil {
		return nil, err
	}
	if err := s.store.UpdateContent(active, []byte(content)); err != nil {
		return nil, err
	}

	s.reindex(active, content)
	s.publish("updated", active)

	state := s.state()
	state.Cursor = cursor
	return state, nil
}

// Undo steps the active tab's history back and propagates the restored
// snapshot through the same write-through pipeline as a manual edit.
func (s *Session) Undo(_ context.Context) (*State, error) {
	return s.step(func(st *history.Stack) (history.Snapshot, bool) { return st.Undo() })
}

// Redo reapplies the most recently undone snapshot of the active tab.
func (s *Session) Redo(_ context.Context) (*State, error) {
	return s.step(func(st *history.Stack) (history.Snapshot, bool) { return st.Redo() })
}

func (s *Session) step(move func(*history.Stack) (history.Snapshot, bool)) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	active := s.tabs.Active()
	if active == "" {
		return nil, fmt.Errorf("session: history step: %w", apperr.ErrNoActiveTab)
	}
	st, ok := s.histories[active]
	if !ok {
		return nil, fmt.Errorf("session: history step: %w", apperr.ErrNotFound)
	}

	snap, moved := move(st)
	if !moved {
		// Nothing to undo/redo: report current state unchanged.
		return s.state(), nil
	}

	if err := s.tabs.PropagateEdit(snap.Content); err != nil {
		return nil, err
	}
	if err := s.store.UpdateContent(active, []byte(snap.Content)); err != nil {
		return nil, err
	}
	s.reindex(active, snap.Content)
	s.publish("updated", active)

	state := s.state()
	state.Cursor = snap.Cursor
	return state, nil
}

// OpenTab opens a markdown file as a tab and activates it. A history stack
// is created lazily, seeded from the file's current content; re-opening an
// already open tab keeps its existing history.
func (s *Session) OpenTab(_ context.Context, name string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("session: open tab %s: %w", name, apperr.ErrNotFound)
	}
	if f.Kind != models.KindMarkdown {
		return nil, fmt.Errorf("session: open tab %s: not a markdown document", name)
	}

	content := s.tabs.Open(name, string(f.Content))
	if _, exists := s.histories[name]; !exists {
		s.histories[name] = history.New(content, 0, s.historyLimit)
	}
	return s.state(), nil
}

// SwitchTab activates an open tab and loads its mirrored content into the
// buffer. Histories are kept per tab and swapped, not reset, so undo
// survives switching away and back.
func (s *Session) SwitchTab(_ context.Context, id string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	content, err := s.tabs.Switch(id)
	if err != nil {
		return nil, err
	}
	if _, exists := s.histories[id]; !exists {
		s.histories[id] = history.New(content, 0, s.historyLimit)
	}
	return s.state(), nil
}

// CloseTab removes a tab and its history stack. Closing the active tab
// activates the first remaining tab or clears the buffer.
func (s *Session) CloseTab(_ context.Context, id string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if _, _, err := s.tabs.Close(id); err != nil {
		return nil, err
	}
	delete(s.histories, id)
	return s.state(), nil
}

// RenameFile renames a file and cascades reference rewrites through every
// markdown body, the open tab list, the history key, and the index.
func (s *Session) RenameFile(_ context.Context, oldName, newName string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	clean, err := importer.CleanName(newName)
	if err != nil {
		return nil, err
	}
	// A rename changes the file's kind with it. An open tab mirrors a
	// markdown buffer, so an open document must keep a markdown name.
	if s.tabs.Has(oldName) && models.KindForName(clean) != models.KindMarkdown {
		return nil, fmt.Errorf("session: rename %s to %s: open document must keep a markdown name: %w", oldName, clean, apperr.ErrConflict)
	}
	if err := s.store.Rename(oldName, clean); err != nil {
		return nil, err
	}
	s.tabs.Rename(oldName, clean)
	if st, ok := s.histories[oldName]; ok {
		delete(s.histories, oldName)
		s.histories[clean] = st
	}

	// Tab mirrors must pick up cascaded body rewrites.
	s.syncTabsFromStore()

	if s.idx != nil {
		_ = s.idx.RenameDocument(s.id, oldName, clean)
	}
	s.reindexAllMarkdown()
	s.publish("renamed", clean)
	return s.state(), nil
}

// RemoveFile deletes a file; removing an image cascades the deleted
// placeholder into every markdown body. An open tab for the file is closed
// first so no tab ever references a missing store entry.
func (s *Session) RemoveFile(_ context.Context, name string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.tabs.Has(name) {
		if _, _, err := s.tabs.Close(name); err != nil {
			return nil, err
		}
		delete(s.histories, name)
	}
	if err := s.store.Remove(name); err != nil {
		return nil, err
	}
	s.syncTabsFromStore()

	if s.idx != nil {
		_ = s.idx.DeleteDocument(s.id, name)
	}
	s.reindexAllMarkdown()
	s.publish("removed", name)
	return s.state(), nil
}

// ImportBatch classifies externally selected files. Name collisions are
// surfaced before any mutation so a failed import never partially applies.
// Pending images are queued for the conversion confirmation; the report
// lists what was added and what awaits confirmation.
func (s *Session) ImportBatch(_ context.Context, batch []importer.Incoming) (*ImportReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	res, err := importer.Classify(batch)
	if err != nil {
		return nil, err
	}

	// Pre-check collisions across the whole batch, including duplicates
	// within the batch itself: no partial mutation.
	names := s.store.Names()
	for _, f := range append(append([]models.WorkspaceFile{}, res.Documents...), res.Ready...) {
		if _, exists := names[f.Name]; exists {
			return nil, fmt.Errorf("session: import %s: %w", f.Name, apperr.ErrAlreadyExists)
		}
		names[f.Name] = struct{}{}
	}

	report := &ImportReport{}
	for _, f := range res.Documents {
		if err := s.store.Add(f); err != nil {
			return nil, err
		}
		s.tabs.Open(f.Name, string(f.Content))
		s.histories[f.Name] = history.New(string(f.Content), 0, s.historyLimit)
		s.reindex(f.Name, string(f.Content))
		s.publish("added", f.Name)
		report.Added = append(report.Added, f.Name)
	}
	for _, f := range res.Ready {
		if err := s.store.Add(f); err != nil {
			return nil, err
		}
		s.publish("added", f.Name)
		report.Added = append(report.Added, f.Name)
	}

	s.pending = append(s.pending, res.Pending...)
	for _, p := range res.Pending {
		report.PendingConversion = append(report.PendingConversion, p.Name)
	}
	return report, nil
}

// ImportReport summarizes an import batch.
type ImportReport struct {
	Added             []string `json:"added"`
	PendingConversion []string `json:"pending_conversion"`
}

// ResolveConversions settles the queued image conversions. Accept or
// decline, every pending file ends up in the store — converted bytes when
// the re-encode succeeds, the original otherwise. Collisions on the
// converted name are auto-suffixed rather than dropped.
func (s *Session) ResolveConversions(_ context.Context, accept bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	resolved := importer.Resolve(s.pending, accept)
	s.pending = nil

	var added []string
	for _, f := range resolved {
		final := s.store.AddUnique(f)
		s.publish("added", final)
		added = append(added, final)
	}
	return added, nil
}

// PendingConversions lists file names awaiting conversion confirmation.
func (s *Session) PendingConversions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pending))
	for i, p := range s.pending {
		out[i] = p.Name
	}
	return out
}

// Files lists the workspace file set.
func (s *Session) Files(_ context.Context) []models.FileMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// Document returns a markdown file's current text.
func (s *Session) Document(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.store.Get(name)
	if !ok {
		return "", fmt.Errorf("session: document %s: %w", name, apperr.ErrNotFound)
	}
	if f.Kind != models.KindMarkdown {
		return "", fmt.Errorf("session: document %s: not a markdown document", name)
	}
	return string(f.Content), nil
}

// FileContent returns any file's raw bytes.
func (s *Session) FileContent(_ context.Context, name string) ([]byte, models.FileKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.store.Get(name)
	if !ok {
		return nil, 0, fmt.Errorf("session: file %s: %w", name, apperr.ErrNotFound)
	}
	return f.Content, f.Kind, nil
}

// UpdateDocument replaces a document's text with optimistic concurrency:
// a non-empty ifMatch must equal the current content checksum. When the
// document is the active tab the change flows through the edit pipeline
// and is undoable; otherwise it writes through directly.
func (s *Session) UpdateDocument(_ context.Context, name, content, ifMatch string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("session: update %s: %w", name, apperr.ErrNotFound)
	}
	if f.Kind != models.KindMarkdown {
		return nil, fmt.Errorf("session: update %s: not a markdown document", name)
	}
	if ifMatch != "" && !checksum.Match(f.Content, ifMatch) {
		return nil, fmt.Errorf("session: update %s: %w", name, apperr.ErrConflict)
	}

	if s.tabs.Active() == name {
		return s.editLocked(content, len(content))
	}
	if err := s.store.UpdateContent(name, []byte(content)); err != nil {
		return nil, err
	}
	s.syncTabsFromStore()
	s.reindex(name, content)
	s.publish("updated", name)
	return s.state(), nil
}

// DocumentChecksum returns the current checksum of a document, the ETag
// value for optimistic concurrency.
func (s *Session) DocumentChecksum(ctx context.Context, name string) (string, error) {
	text, err := s.Document(ctx, name)
	if err != nil {
		return "", err
	}
	return checksum.Sum([]byte(text)), nil
}

// FrontMatter returns the parsed metadata view of a document. The text
// stays the source of truth; this view is recomputed on every call.
func (s *Session) FrontMatter(ctx context.Context, name string) (frontmatter.Data, error) {
	text, err := s.Document(ctx, name)
	if err != nil {
		return frontmatter.Data{}, err
	}
	d, _ := frontmatter.Parse(text)
	return d, nil
}

// UpdateFrontMatter rewrites a document's front-matter block and commits
// the result through the standard content-update contract, so the change
// is undoable like any edit when the document is the active tab.
func (s *Session) UpdateFrontMatter(ctx context.Context, name string, d frontmatter.Data) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("session: front matter %s: %w", name, apperr.ErrNotFound)
	}
	updated := frontmatter.Rewrite(string(f.Content), d)

	if s.tabs.Active() == name {
		return s.editLocked(updated, 0)
	}

	// Not the active buffer: write through directly and mirror any open tab.
	if err := s.store.UpdateContent(name, []byte(updated)); err != nil {
		return nil, err
	}
	s.syncTabsFromStore()
	s.reindex(name, updated)
	s.publish("updated", name)
	return s.state(), nil
}

// MissingResources recomputes the missing-asset projection for the active
// document.
func (s *Session) MissingResources(_ context.Context) []models.MissingResource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

// Render renders a document to HTML. Read-only.
func (s *Session) Render(ctx context.Context, name string) ([]byte, error) {
	text, err := s.Document(ctx, name)
	if err != nil {
		return nil, err
	}
	return render.HTML([]byte(text)), nil
}

// Archive packages the full file set into the downloadable ZIP blob.
func (s *Session) Archive(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	snapshot := s.store.Snapshot()
	s.mu.Unlock()
	return archive.Build(snapshot)
}

// Search delegates full-text search to the index.
func (s *Session) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.idx == nil {
		return nil, nil
	}
	return s.idx.Search(s.id, query, limit)
}

// State reports the current controller state.
func (s *Session) State(_ context.Context) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// state builds the State view; the mutex must be held.
func (s *Session) state() *State {
	st := &State{
		ActiveTab: s.tabs.Active(),
		Tabs:      s.tabs.List(),
		Missing:   s.missingLocked(),
	}
	if content, err := s.tabs.ActiveContent(); err == nil {
		st.Content = content
	}
	if hs, ok := s.histories[st.ActiveTab]; ok && st.ActiveTab != "" {
		st.CanUndo = hs.CanUndo()
		st.CanRedo = hs.CanRedo()
	}
	return st
}

func (s *Session) missingLocked() []models.MissingResource {
	content, err := s.tabs.ActiveContent()
	if err != nil {
		return nil
	}
	return refscan.Missing(content, s.store.Names())
}

// syncTabsFromStore re-mirrors every open tab from its store entry after a
// cascade rewrote markdown bodies behind the tab's back.
func (s *Session) syncTabsFromStore() {
	for _, tab := range s.tabs.List() {
		f, ok := s.store.Get(tab.ID)
		if !ok {
			continue
		}
		if string(f.Content) != tab.Content {
			s.tabs.MirrorContent(tab.ID, string(f.Content))
			if st, ok := s.histories[tab.ID]; ok {
				st.Push(string(f.Content), 0)
			}
		}
	}
}

// reindex upserts one document into the search index.
func (s *Session) reindex(name, content string) {
	if s.idx == nil {
		return
	}
	d, _ := frontmatter.Parse(content)
	_ = s.idx.UpsertDocument(index.DocRow{
		Workspace: s.id,
		Name:      name,
		Title:     d.Title,
		UpdatedAt: time.Now(),
	}, content, refscan.References(content))
}

// reindexAllMarkdown refreshes the index after a cascade touched multiple
// bodies.
func (s *Session) reindexAllMarkdown() {
	if s.idx == nil {
		return
	}
	for _, meta := range s.store.List() {
		if meta.Kind != models.KindMarkdown {
			continue
		}
		if f, ok := s.store.Get(meta.Name); ok {
			s.reindex(meta.Name, string(f.Content))
		}
	}
}

func (s *Session) publish(kind, name string) {
	if s.broker == nil {
		return
	}
	s.broker.PublishFileEvent(kind, s.id, name)
}
