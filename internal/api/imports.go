package api

import (
	"io"
	"net/http"

	"github.com/halvorsen/skald/internal/importer"
)

// Import handles POST /api/workspaces/{ws}/files/import
// (multipart/form-data, repeated field "files"). The whole batch is
// validated before anything is added: one bad name or collision rejects
// the lot.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'files' field in multipart form"))
		return
	}

	batch := make([]importer.Incoming, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to open uploaded file"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read uploaded file"))
			return
		}
		batch = append(batch, importer.Incoming{Name: hdr.Filename, Data: data})
	}

	report, err := s.ImportBatch(r.Context(), batch)
	if err != nil {
		respondError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ResolveImport handles POST /api/workspaces/{ws}/files/import/resolve:
// the user's answer to the pending image conversion prompt.
func (h *Handler) ResolveImport(w http.ResponseWriter, r *http.Request) {
	s := h.workspace(w, r)
	if s == nil {
		return
	}
	var req ResolveImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	added, err := s.ResolveConversions(r.Context(), req.Accept)
	if err != nil {
		respondError(w, "resolve import", err)
		return
	}
	if added == nil {
		added = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added": added,
	})
}
