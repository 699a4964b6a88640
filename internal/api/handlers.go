package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/halvorsen/skald/internal/apperr"
	"github.com/halvorsen/skald/internal/archive"
	"github.com/halvorsen/skald/internal/checksum"
	"github.com/halvorsen/skald/internal/frontmatter"
	"github.com/halvorsen/skald/internal/models"
	"github.com/halvorsen/skald/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	reg            *session.Registry
	maxUploadBytes int64
}

// NewHandler creates a new Handler.
func NewHandler(reg *session.Registry, maxUploadBytes int64) *Handler {
	return &Handler{reg: reg, maxUploadBytes: maxUploadBytes}
}

// workspace resolves the session addressed by the {ws} route param. On
// failure it writes the error response and returns nil.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "ws")
	s, err := h.reg.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("workspace not found"))
		return nil
	}
	return s
}

// fileName extracts the {name} route param. Supports encoded names from
// clients that escape dots or spaces.
func fileName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// respondError maps domain sentinel errors onto HTTP statuses.
func respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrNoActiveTab):
		writeJSON(w, http.StatusConflict, errorBody("no active tab"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// CreateWorkspace handles POST /api/workspaces.
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	s := h.reg.Create(r.Context())
	writeJSON(w, http.StatusCreated, WorkspaceCreated{ID: s.ID()})
}

// WorkspaceState handles GET /api/workspaces/{ws}.
func (h *Handler) WorkspaceState(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.State(r.Context()))
}

// DeleteWorkspace handles DELETE /api/workspaces/{ws}.
func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Delete(chi.URLParam(r, "ws")); err != nil {
		respondError(w, "delete workspace", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles handles GET /api/workspaces/{ws}/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": s.Files(r.Context()),
	})
}

// GetFile handles GET /api/workspaces/{ws}/files/{name}: raw bytes with a
// content type matching the file kind.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	name := fileName(r)
	data, kind, err := s.FileContent(r.Context(), name)
	if err != nil {
		respondError(w, "get file", err)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(name, kind))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentTypeFor(name string, kind models.FileKind) string {
	switch kind {
	case models.KindMarkdown:
		return "text/markdown; charset=utf-8"
	case models.KindImage:
		ext := strings.TrimPrefix(models.Ext(name), ".")
		if ext == "jpg" {
			ext = "jpeg"
		}
		if ext == "svg" {
			return "image/svg+xml"
		}
		return "image/" + ext
	default:
		return "application/octet-stream"
	}
}

// RenameFile handles POST /api/workspaces/{ws}/files/{name}/rename.
func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("new_name is required"))
		return
	}
	st, err := s.RenameFile(r.Context(), fileName(r), req.NewName)
	if err != nil {
		respondError(w, "rename file", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteFile handles DELETE /api/workspaces/{ws}/files/{name}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	st, err := s.RemoveFile(r.Context(), fileName(r))
	if err != nil {
		respondError(w, "delete file", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CreateDocument handles POST /api/workspaces/{ws}/documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	st, err := s.NewDocument(r.Context(), req.Name, req.Content)
	if err != nil {
		respondError(w, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// GetDocument handles GET /api/workspaces/{ws}/documents/{name}. The ETag
// header carries the content checksum for optimistic concurrency.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	name := fileName(r)
	text, err := s.Document(r.Context(), name)
	if err != nil {
		respondError(w, "get document", err)
		return
	}
	etag := checksum.Sum([]byte(text))
	w.Header().Set("ETag", `"`+etag+`"`)
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     name,
		"content":  text,
		"checksum": etag,
	})
}

// UpdateDocument handles PUT /api/workspaces/{ws}/documents/{name} with
// If-Match optimistic concurrency.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req UpdateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	st, err := s.UpdateDocument(r.Context(), fileName(r), req.Content, ifMatch)
	if err != nil {
		respondError(w, "update document", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetFrontMatter handles GET /api/workspaces/{ws}/documents/{name}/frontmatter.
func (h *Handler) GetFrontMatter(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	d, err := s.FrontMatter(r.Context(), fileName(r))
	if err != nil {
		respondError(w, "get front matter", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UpdateFrontMatter handles PUT /api/workspaces/{ws}/documents/{name}/frontmatter.
func (h *Handler) UpdateFrontMatter(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var d frontmatter.Data
	if !decodeBody(w, r, &d) {
		return
	}
	st, err := s.UpdateFrontMatter(r.Context(), fileName(r), d)
	if err != nil {
		respondError(w, "update front matter", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Edit handles POST /api/workspaces/{ws}/edit.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req EditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.EditContent(r.Context(), req.Content, req.Cursor)
	if err != nil {
		respondError(w, "edit", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Format handles POST /api/workspaces/{ws}/format.
func (h *Handler) Format(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req FormatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.InsertFormat(r.Context(), session.FormatKind(req.Kind), req.SelStart, req.SelEnd)
	if err != nil {
		if errors.Is(err, apperr.ErrNoActiveTab) {
			respondError(w, "format", err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Paste handles POST /api/workspaces/{ws}/paste.
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req PasteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.PasteText(r.Context(), req.Text, req.SelStart, req.SelEnd, req.Confirm)
	if err != nil {
		respondError(w, "paste", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Drop handles POST /api/workspaces/{ws}/drop.
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req DropRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.DropImage(r.Context(), req.Name, req.Pos)
	if err != nil {
		respondError(w, "drop image", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Undo handles POST /api/workspaces/{ws}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	st, err := s.Undo(r.Context())
	if err != nil {
		respondError(w, "undo", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Redo handles POST /api/workspaces/{ws}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	st, err := s.Redo(r.Context())
	if err != nil {
		respondError(w, "redo", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// OpenTab handles POST /api/workspaces/{ws}/tabs.
func (h *Handler) OpenTab(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req OpenTabRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	st, err := s.OpenTab(r.Context(), req.Name)
	if err != nil {
		respondError(w, "open tab", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ActivateTab handles POST /api/workspaces/{ws}/tabs/{name}/activate.
func (h *Handler) ActivateTab(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	st, err := s.SwitchTab(r.Context(), fileName(r))
	if err != nil {
		respondError(w, "activate tab", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CloseTab handles DELETE /api/workspaces/{ws}/tabs/{name}.
func (h *Handler) CloseTab(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	st, err := s.CloseTab(r.Context(), fileName(r))
	if err != nil {
		respondError(w, "close tab", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Missing handles GET /api/workspaces/{ws}/missing.
func (h *Handler) Missing(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	missing := s.MissingResources(r.Context())
	if missing == nil {
		missing = []models.MissingResource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"missing": missing,
	})
}

// RenderDocument handles GET /api/workspaces/{ws}/documents/{name}/render.
func (h *Handler) RenderDocument(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	html, err := s.Render(r.Context(), fileName(r))
	if err != nil {
		respondError(w, "render", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// Search handles GET /api/workspaces/{ws}/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := s.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Archive handles GET /api/workspaces/{ws}/archive: the whole file set as
// a ZIP download.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	blob, err := s.Archive(r.Context())
	if err != nil {
		respondError(w, "archive", err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.DownloadName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}
