package api

import (
	"github.com/halvorsen/skald/internal/session"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UpdateDocumentRequest is the request body for replacing a document's text.
type UpdateDocumentRequest struct {
	Content string `json:"content"`
}

// EditRequest carries a buffer change for the active tab.
type EditRequest struct {
	Content string `json:"content"`
	Cursor  int    `json:"cursor"`
}

// FormatRequest applies a formatting command to the selection.
type FormatRequest struct {
	Kind     string `json:"kind"`
	SelStart int    `json:"sel_start"`
	SelEnd   int    `json:"sel_end"`
}

// PasteRequest carries pasted plain text and whether the user confirmed
// link synthesis.
type PasteRequest struct {
	Text     string `json:"text"`
	SelStart int    `json:"sel_start"`
	SelEnd   int    `json:"sel_end"`
	Confirm  bool   `json:"confirm"`
}

// DropRequest inserts a reference to a workspace image at a position.
type DropRequest struct {
	Name string `json:"name"`
	Pos  int    `json:"pos"`
}

// RenameRequest is the request body for renaming a file.
type RenameRequest struct {
	NewName string `json:"new_name"`
}

// OpenTabRequest opens a document as a tab.
type OpenTabRequest struct {
	Name string `json:"name"`
}

// ResolveImportRequest settles the queued image conversions.
type ResolveImportRequest struct {
	Accept bool `json:"accept"`
}

// WorkspaceCreated is returned after creating a workspace.
type WorkspaceCreated struct {
	ID string `json:"id"`
}

// StateResponse is the controller state returned by mutating endpoints.
type StateResponse = session.State

// ImportResponse reports an import batch outcome.
type ImportResponse = session.ImportReport
