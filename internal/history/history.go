// Package history provides linear undo/redo over full-document snapshots.
package history

import "time"

// DefaultLimit is the snapshot cap used when no limit is configured.
const DefaultLimit = 100

// Snapshot is one committed state of a document buffer.
type Snapshot struct {
	Content string
	Cursor  int
	At      time.Time
}

// Stack is a bounded linear history for a single document buffer.
// New pushes discard the redo branch; once the cap is reached the oldest
// entry is evicted (FIFO). Pushing content equal to the current entry is
// a no-op so re-renders and no-op edits never grow the stack.
type Stack struct {
	entries []Snapshot
	pos     int
	limit   int
}

// New creates a history seeded with a single entry at position 0.
func New(content string, cursor, limit int) *Stack {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Stack{
		entries: []Snapshot{{Content: content, Cursor: cursor, At: time.Now()}},
		pos:     0,
		limit:   limit,
	}
}

// Push records a new snapshot after the current position.
func (s *Stack) Push(content string, cursor int) {
	if s.entries[s.pos].Content == content {
		return
	}
	// Discard the redo branch.
	s.entries = append(s.entries[:s.pos+1], Snapshot{
		Content: content,
		Cursor:  cursor,
		At:      time.Now(),
	})
	s.pos++
	if len(s.entries) > s.limit {
		drop := len(s.entries) - s.limit
		s.entries = s.entries[drop:]
		s.pos -= drop
	}
}

// Undo steps back one snapshot. The second return is false when there is
// nothing to undo; the stack is unchanged in that case.
func (s *Stack) Undo() (Snapshot, bool) {
	if !s.CanUndo() {
		return Snapshot{}, false
	}
	s.pos--
	return s.entries[s.pos], true
}

// Redo steps forward one snapshot previously undone.
func (s *Stack) Redo() (Snapshot, bool) {
	if !s.CanRedo() {
		return Snapshot{}, false
	}
	s.pos++
	return s.entries[s.pos], true
}

// CanUndo reports whether an earlier snapshot exists.
func (s *Stack) CanUndo() bool { return s.pos > 0 }

// CanRedo reports whether an undone snapshot can be reapplied.
func (s *Stack) CanRedo() bool { return s.pos < len(s.entries)-1 }

// Current returns the snapshot at the current position.
func (s *Stack) Current() Snapshot { return s.entries[s.pos] }

// Len returns the number of stored snapshots.
func (s *Stack) Len() int { return len(s.entries) }

// Reset re-seeds the stack to a single entry at position 0.
func (s *Stack) Reset(content string, cursor int) {
	s.entries = s.entries[:0]
	s.entries = append(s.entries, Snapshot{Content: content, Cursor: cursor, At: time.Now()})
	s.pos = 0
}
