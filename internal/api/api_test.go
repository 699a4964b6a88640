package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/halvorsen/skald/internal/testutil"
)

// testEnv builds a registry and router, creates one workspace, and returns
// the router plus the workspace id. authToken="" means auth disabled.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string) (http.Handler, string) {
	t.Helper()

	reg := testutil.TestRegistry(t)
	router := NewRouter(reg, authEnabled, authToken, nil, 10<<20)

	req := httptest.NewRequest(http.MethodPost, "/workspaces", nil)
	if authEnabled {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create workspace = %d, body = %s", w.Code, w.Body.String())
	}
	var created WorkspaceCreated
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatal("empty workspace id")
	}
	return router, created.ID
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) *StateResponse {
	t.Helper()
	var st StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v (%s)", err, w.Body.String())
	}
	return &st
}

func TestCreateDocumentAndState(t *testing.T) {
	router, ws := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "hello.md", Content: "# Hello"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	st := decodeState(t, w)
	if st.ActiveTab != "hello.md" || st.Content != "# Hello" {
		t.Errorf("state = %q/%q", st.ActiveTab, st.Content)
	}

	w = doJSON(t, router, http.MethodGet, "/workspaces/"+ws, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d", w.Code)
	}
	st = decodeState(t, w)
	if len(st.Tabs) != 1 {
		t.Errorf("tabs = %d", len(st.Tabs))
	}
}

func TestCreateDocumentCollisionSuffixes(t *testing.T) {
	router, ws := testEnv(t, "")

	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md"})
	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md"})
	if w.Code != http.StatusCreated {
		t.Fatalf("second create = %d", w.Code)
	}
	if st := decodeState(t, w); st.ActiveTab != "a-1.md" {
		t.Errorf("active = %q, want a-1.md", st.ActiveTab)
	}
}

func TestUnknownWorkspace(t *testing.T) {
	router, _ := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/workspaces/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDocumentUpdateWithIfMatch(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "lock.md", Content: "v1"})

	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws+"/documents/lock.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	// Stale If-Match is rejected.
	b, _ := json.Marshal(UpdateDocumentRequest{Content: "v2"})
	req := httptest.NewRequest(http.MethodPut, "/workspaces/"+ws+"/documents/lock.md", bytes.NewReader(b))
	req.Header.Set("If-Match", `"deadbeef"`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", rec.Code)
	}

	// Matching If-Match goes through.
	req = httptest.NewRequest(http.MethodPut, "/workspaces/"+ws+"/documents/lock.md", bytes.NewReader(b))
	req.Header.Set("If-Match", etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", rec.Code, rec.Body.String())
	}
	if st := decodeState(t, rec); st.Content != "v2" {
		t.Errorf("content = %q", st.Content)
	}
}

func TestEditUndoRedoEndpoints(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md", Content: "v0"})
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/edit",
		EditRequest{Content: "v1", Cursor: 2})

	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/undo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("undo = %d", w.Code)
	}
	if st := decodeState(t, w); st.Content != "v0" || !st.CanRedo {
		t.Errorf("after undo: %q redo:%v", st.Content, st.CanRedo)
	}

	w = doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/redo", nil)
	if st := decodeState(t, w); st.Content != "v1" {
		t.Errorf("after redo: %q", st.Content)
	}
}

func TestEditWithoutTabs(t *testing.T) {
	router, ws := testEnv(t, "")
	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/edit",
		EditRequest{Content: "x"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestFormatEndpoint(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md", Content: "word"})

	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/format",
		FormatRequest{Kind: "bold", SelStart: 0, SelEnd: 4})
	if w.Code != http.StatusOK {
		t.Fatalf("format = %d", w.Code)
	}
	if st := decodeState(t, w); st.Content != "**word**" {
		t.Errorf("content = %q", st.Content)
	}

	w = doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/format",
		FormatRequest{Kind: "blink"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d, want 400", w.Code)
	}
}

func TestPasteEndpointSynthesizesLink(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md"})

	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/paste",
		PasteRequest{Text: `"Docs" https://example.com/d`, Confirm: true})
	if w.Code != http.StatusOK {
		t.Fatalf("paste = %d", w.Code)
	}
	if st := decodeState(t, w); !strings.Contains(st.Content, "[Docs](https://example.com/d)") {
		t.Errorf("content = %q", st.Content)
	}
}

func TestMultipartImportAndResolve(t *testing.T) {
	router, ws := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("files", "notes.md")
	fw.Write([]byte("# imported"))
	fw, _ = mw.CreateFormFile("files", "pic.png")
	fw.Write([]byte("not-a-real-png"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/workspaces/"+ws+"/files/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var report ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if len(report.Added) != 1 || report.Added[0] != "notes.md" {
		t.Errorf("added = %v", report.Added)
	}
	if len(report.PendingConversion) != 1 || report.PendingConversion[0] != "pic.png" {
		t.Errorf("pending = %v", report.PendingConversion)
	}

	// Decline conversion: the original file is still added.
	rec := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/files/import/resolve",
		ResolveImportRequest{Accept: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve = %d", rec.Code)
	}
	var resolved struct {
		Added []string `json:"added"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resolved)
	if len(resolved.Added) != 1 || resolved.Added[0] != "pic.png" {
		t.Errorf("resolved = %v", resolved.Added)
	}
}

func TestImportCollisionReturns409(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("files", "a.md")
	fw.Write([]byte("dup"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/workspaces/"+ws+"/files/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("import = %d, want 409", w.Code)
	}
}

func TestRenameEndpointCascades(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "post.md"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("files", "old.jpg")
	fw.Write([]byte{1})
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/workspaces/"+ws+"/files/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import = %d", rec.Code)
	}

	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/edit",
		EditRequest{Content: "![old](old.jpg)"})

	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/files/old.jpg/rename",
		RenameRequest{NewName: "new.jpg"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}
	if st := decodeState(t, w); !strings.Contains(st.Content, "![new](new.jpg)") {
		t.Errorf("content = %q", st.Content)
	}
}

func TestDeleteFileEndpoint(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md"})
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "b.md"})

	w := doJSON(t, router, http.MethodDelete, "/workspaces/"+ws+"/files/b.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if st := decodeState(t, w); st.ActiveTab != "a.md" {
		t.Errorf("active = %q", st.ActiveTab)
	}

	w = doJSON(t, router, http.MethodDelete, "/workspaces/"+ws+"/files/b.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestTabEndpoints(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md", Content: "A"})
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "b.md", Content: "B"})

	w := doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/tabs/a.md/activate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate = %d", w.Code)
	}
	if st := decodeState(t, w); st.ActiveTab != "a.md" || st.Content != "A" {
		t.Errorf("state = %q/%q", st.ActiveTab, st.Content)
	}

	w = doJSON(t, router, http.MethodDelete, "/workspaces/"+ws+"/tabs/a.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("close = %d", w.Code)
	}
	if st := decodeState(t, w); st.ActiveTab != "b.md" {
		t.Errorf("active = %q after close", st.ActiveTab)
	}
}

func TestMissingEndpoint(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md"})
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/edit",
		EditRequest{Content: "![x](gone.png)"})

	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws+"/missing", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("missing = %d", w.Code)
	}
	var resp struct {
		Missing []struct {
			Name string `json:"name"`
		} `json:"missing"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Missing) != 1 || resp.Missing[0].Name != "gone.png" {
		t.Errorf("missing = %+v", resp.Missing)
	}
}

func TestRenderEndpoint(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md", Content: "# Title"})

	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws+"/documents/a.md/render", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<h1") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestArchiveEndpoint(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md", Content: "# hi"})

	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws+"/archive", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "workspace.zip") {
		t.Errorf("disposition = %q", cd)
	}
}

func TestFrontMatterEndpoints(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md", Content: "---\ntitle: Old\n---\nbody\n"})

	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws+"/documents/a.md/frontmatter", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	var d struct {
		Title string `json:"title"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Title != "Old" {
		t.Errorf("title = %q", d.Title)
	}

	w = doJSON(t, router, http.MethodPut, "/workspaces/"+ws+"/documents/a.md/frontmatter",
		map[string]string{"title": "New"})
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d, body = %s", w.Code, w.Body.String())
	}
	if st := decodeState(t, w); !strings.Contains(st.Content, "title: New") {
		t.Errorf("content = %q", st.Content)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, ws := testEnv(t, "")
	doJSON(t, router, http.MethodPost, "/workspaces/"+ws+"/documents",
		CreateDocumentRequest{Name: "a.md", Content: "the quick brown fox"})

	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws+"/search?q=fox", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Name != "a.md" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = doJSON(t, router, http.MethodGet, "/workspaces/"+ws+"/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query = %d, want 400", w.Code)
	}
}

func TestAuthDisabledAllowsAll(t *testing.T) {
	router, ws := testEnvFull(t, false, "")
	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuthTokenMode(t *testing.T) {
	router, ws := testEnvFull(t, true, "sekrit")

	// Missing token rejected.
	w := doJSON(t, router, http.MethodGet, "/workspaces/"+ws, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	// Wrong token rejected.
	req := httptest.NewRequest(http.MethodGet, "/workspaces/"+ws, nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", rec.Code)
	}

	// Correct token accepted.
	req = httptest.NewRequest(http.MethodGet, "/workspaces/"+ws, nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("good token = %d", rec.Code)
	}
}

func TestDeleteWorkspace(t *testing.T) {
	router, ws := testEnv(t, "")

	w := doJSON(t, router, http.MethodDelete, "/workspaces/"+ws, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/workspaces/"+ws, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("after delete = %d, want 404", w.Code)
	}
}
