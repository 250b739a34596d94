package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/base"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/testutil"
)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// authEnabled=false means disabled mode; authEnabled=true with non-empty token means token mode.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithVault(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvWithVault(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*noteservice.Service, http.Handler, string) {
	t.Helper()

	db := testutil.TestDB(t)
	root, store := testutil.TestVault(t)

	svc := noteservice.NewService(store, db)
	router := NewRouter(svc, db, store, authEnabled, authToken, sseHandler)
	return svc, router, root
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", map[string]string{
		"name": "hello", "folder": "topics", "content": "#greeting [idioma::es]",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/notes/hello", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Name != "hello" || note.Folder != "topics" {
		t.Errorf("note = %+v", note)
	}
	if len(note.Tags) != 1 || note.Tags[0] != "greeting" {
		t.Errorf("tags = %v", note.Tags)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")

	body := map[string]string{"name": "dup", "content": "a"}
	if w := do(t, router, http.MethodPost, "/notes", body); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/notes", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateInvalidName(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/notes", map[string]string{"name": "a/b", "content": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid name = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", map[string]string{"name": "lock", "content": "v1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	var created NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	// Update with correct checksum.
	body, _ := json.Marshal(map[string]string{"content": "v2"})
	req := httptest.NewRequest(http.MethodPut, "/notes/lock", bytes.NewReader(body))
	req.Header.Set("If-Match", created.Checksum)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// Update with stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, "/notes/lock", bytes.NewReader(body))
	req.Header.Set("If-Match", created.Checksum) // stale now
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestAppendRenameMove(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "n", "content": "line1"})

	w := do(t, router, http.MethodPost, "/notes/n/append", map[string]string{"text": "line2"})
	if w.Code != http.StatusOK {
		t.Fatalf("append = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "line1\nline2" {
		t.Errorf("content = %q", note.Content)
	}

	if w := do(t, router, http.MethodPost, "/notes/n/rename", map[string]string{"new_name": "m"}); w.Code != http.StatusOK {
		t.Fatalf("rename = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/n", nil); w.Code != http.StatusNotFound {
		t.Errorf("old name = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodPost, "/notes/m/move", map[string]string{"folder": "archive"})
	if w.Code != http.StatusOK {
		t.Fatalf("move = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Folder != "archive" {
		t.Errorf("folder = %q", note.Folder)
	}
}

func TestDeleteNote_SoftThenPermanent(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "bye", "content": "gone"})

	if w := do(t, router, http.MethodDelete, "/notes/bye", nil); w.Code != http.StatusNoContent {
		t.Errorf("soft delete = %d, want 204", w.Code)
	}

	// Hidden from listings but still resolvable by name.
	w := do(t, router, http.MethodGet, "/notes", nil)
	var listed NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &listed)
	if listed.Total != 0 {
		t.Errorf("trashed note still listed: %+v", listed)
	}
	if w := do(t, router, http.MethodGet, "/notes/bye", nil); w.Code != http.StatusOK {
		t.Errorf("trashed note lookup = %d, want 200", w.Code)
	}

	if w := do(t, router, http.MethodDelete, "/notes/bye?permanent=true", nil); w.Code != http.StatusNoContent {
		t.Errorf("permanent delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/bye", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after permanent delete = %d, want 404", w.Code)
	}
}

func TestListNotesByFolder(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "a", "folder": "games", "content": "x"})
	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "b", "content": "y"})

	w := do(t, router, http.MethodGet, "/notes?folder=games", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Notes[0].Name != "a" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "find", "content": "uniquetoken here"})

	w := do(t, router, http.MethodGet, "/search?q=uniquetoken", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("search results = %d, want 1", len(resp.Results))
	}

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestTagEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "a", "content": "#go #rust"})
	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "b", "content": "#go"})

	w := do(t, router, http.MethodGet, "/tags", nil)
	var tags TagListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tags)
	if len(tags.Tags) != 2 || tags.Tags[0].Name != "go" {
		t.Errorf("tags = %+v", tags)
	}

	w = do(t, router, http.MethodGet, "/tags/rust/notes", nil)
	var hits SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &hits)
	if len(hits.Results) != 1 || hits.Results[0].Name != "a" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestNoteProperties(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "g", "content": "[juego::Dune, horas::3]"})

	w := do(t, router, http.MethodGet, "/notes/g/properties", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("properties = %d", w.Code)
	}
	var resp struct {
		Properties []map[string]any `json:"properties"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Properties) != 2 {
		t.Errorf("properties = %+v", resp.Properties)
	}
}

func TestBaseLifecycleAndView(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "g1", "content": "[juego::A, horas::2]"})
	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "g2", "content": "[juego::B, horas::3]"})

	// Derived columns are the sorted key union, so horas lands in column A.
	v := base.NewView("Table")
	v.SpecialRows = []base.SpecialRow{{ID: "total", Name: "Total", Cells: map[string]string{"horas": "=SUM(A:A)"}}}
	w := do(t, router, http.MethodPost, "/bases", &base.Base{
		Name:       "Games",
		SourceType: base.SourceGroupedRecords,
		Views:      []base.BaseView{v},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create base = %d, body = %s", w.Code, w.Body.String())
	}
	var created base.Base
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == 0 {
		t.Fatal("base id not assigned")
	}

	w = do(t, router, http.MethodGet, "/bases/"+itoa(created.ID)+"/views/"+v.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run view = %d, body = %s", w.Code, w.Body.String())
	}
	var view struct {
		Cells           [][]string `json:"cells"`
		SpecialRowStart int        `json:"special_row_start"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.SpecialRowStart != 2 || len(view.Cells) != 3 {
		t.Fatalf("view = %+v", view)
	}
	total := view.Cells[2][0]
	if total != "5" {
		t.Errorf("total cell = %q, want 5", total)
	}

	if w := do(t, router, http.MethodDelete, "/bases/"+itoa(created.ID), nil); w.Code != http.StatusNoContent {
		t.Errorf("delete base = %d", w.Code)
	}
}

func TestRecordCellWrite(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/notes", map[string]string{"name": "diary", "content": "[pelicula::Dune, nota::8]"})

	w := do(t, router, http.MethodPost, "/records/cell", map[string]any{
		"note_name": "diary",
		"ref":       []map[string]string{{"key": "pelicula", "value": "Dune"}, {"key": "nota", "value": "8"}},
		"key":       "nota",
		"value":     "9",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("record cell = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RecordWriteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Rewritten != 1 {
		t.Errorf("rewritten = %d, want 1", resp.Rewritten)
	}

	g := do(t, router, http.MethodGet, "/notes/diary", nil)
	var note NoteDetail
	_ = json.Unmarshal(g.Body.Bytes(), &note)
	if note.Content != "[pelicula::Dune, nota::9]" {
		t.Errorf("content = %q", note.Content)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"name": "auth", "content": "test"})
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until context done.
func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithVault(t, true, "secret", sseStub())

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvWithVault(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Attachment tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAttachment(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)

	w := uploadFile(t, router, "test.png", []byte("fake-png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["filename"] != "test.png" {
		t.Errorf("filename = %v", resp["filename"])
	}

	data, err := os.ReadFile(filepath.Join(vaultDir, "attachments", "test.png"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "fake-png-data" {
		t.Errorf("content mismatch")
	}
}

func TestServeAttachment_NotFound(t *testing.T) {
	_, store := testutil.TestVault(t)
	ah := NewAttachmentHandler(store)
	r := chi.NewRouter()
	r.Get("/attachments/{filename}", ah.ServeFile)

	req := httptest.NewRequest(http.MethodGet, "/attachments/nope.png", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing attachment = %d, want 404", w.Code)
	}
}

func TestServeAttachment_TraversalBlocked(t *testing.T) {
	_, store := testutil.TestVault(t)
	ah := NewAttachmentHandler(store)
	r := chi.NewRouter()
	r.Get("/attachments/{filename}", ah.ServeFile)

	for _, name := range []string{"../secret.md", "../../etc/passwd"} {
		req := httptest.NewRequest(http.MethodGet, "/attachments/"+name, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		// chi may not route the traversal paths at all (404), or our handler rejects (400).
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}

func TestUploadAttachment_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithVault(t, true, "secret", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "x.png")
	_, _ = part.Write([]byte("data"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
}

func TestUploadAttachment_MissingFileField(t *testing.T) {
	_, router, _ := testEnvWithVault(t, false, "", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}
