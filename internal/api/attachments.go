package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/storage"
)

const (
	attachmentDir  = "attachments"
	maxUploadBytes = 50 << 20 // 50 MB
)

// AttachmentHandler stores uploaded files in the vault's attachments
// folder and serves them back by bare filename. Writes go through the
// vault provider so they get the same atomic-rename treatment as notes.
type AttachmentHandler struct {
	store storage.Provider
}

// NewAttachmentHandler creates a handler over the given vault.
func NewAttachmentHandler(store storage.Provider) *AttachmentHandler {
	return &AttachmentHandler{store: store}
}

// attachmentName accepts only a bare filename: no path separators, no
// traversal, no dotfiles.
func attachmentName(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) ||
		strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name, ok := attachmentName(chi.URLParam(r, "filename"))
	if !ok {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	abs := filepath.Join(h.store.Root(), attachmentDir, name)
	if _, err := os.Stat(abs); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, ok := attachmentName(header.Filename)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read upload"))
		return
	}
	if err := h.store.Write(filepath.Join(attachmentDir, name), data); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to save attachment"))
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     int64(len(data)),
		URL:      "/attachments/" + name,
	})
}
