package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvorsen/skald/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(reg *session.Registry, authEnabled bool, token string, sseHandler http.Handler, maxUploadBytes int64) chi.Router {
	h := NewHandler(reg, maxUploadBytes)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace lifecycle.
	r.Post("/workspaces", h.CreateWorkspace)
	r.Get("/workspaces/{ws}", h.WorkspaceState)
	r.Delete("/workspaces/{ws}", h.DeleteWorkspace)

	// File set.
	r.Get("/workspaces/{ws}/files", h.ListFiles)
	r.Get("/workspaces/{ws}/files/{name}", h.GetFile)
	r.Post("/workspaces/{ws}/files/import", h.Import)
	r.Post("/workspaces/{ws}/files/import/resolve", h.ResolveImport)
	r.Post("/workspaces/{ws}/files/{name}/rename", h.RenameFile)
	r.Delete("/workspaces/{ws}/files/{name}", h.DeleteFile)

	// Documents.
	r.Post("/workspaces/{ws}/documents", h.CreateDocument)
	r.Get("/workspaces/{ws}/documents/{name}", h.GetDocument)
	r.Put("/workspaces/{ws}/documents/{name}", h.UpdateDocument)
	r.Get("/workspaces/{ws}/documents/{name}/frontmatter", h.GetFrontMatter)
	r.Put("/workspaces/{ws}/documents/{name}/frontmatter", h.UpdateFrontMatter)
	r.Get("/workspaces/{ws}/documents/{name}/render", h.RenderDocument)

	// Buffer operations on the active tab.
	r.Post("/workspaces/{ws}/edit", h.Edit)
	r.Post("/workspaces/{ws}/format", h.Format)
	r.Post("/workspaces/{ws}/paste", h.Paste)
	r.Post("/workspaces/{ws}/drop", h.Drop)
	r.Post("/workspaces/{ws}/undo", h.Undo)
	r.Post("/workspaces/{ws}/redo", h.Redo)

	// Tabs.
	r.Post("/workspaces/{ws}/tabs", h.OpenTab)
	r.Post("/workspaces/{ws}/tabs/{name}/activate", h.ActivateTab)
	r.Delete("/workspaces/{ws}/tabs/{name}", h.CloseTab)

	// Projections.
	r.Get("/workspaces/{ws}/missing", h.Missing)
	r.Get("/workspaces/{ws}/search", h.Search)
	r.Get("/workspaces/{ws}/archive", h.Archive)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
