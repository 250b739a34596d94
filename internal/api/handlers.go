package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/base"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/query"
	"github.com/starford/laguz/internal/storage"
)

const maxNoteBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	eng    *query.Engine
	writer *base.Writer
	db     *index.DB
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, db *index.DB, store storage.Provider) *Handler {
	return &Handler{
		svc:    svc,
		eng:    query.NewEngine(db),
		writer: base.NewWriter(db, store),
		db:     db,
	}
}

// noteName extracts the note name from the URL path segment.
func noteName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, optionally below one folder
//	@Tags			notes
//	@Produce		json
//	@Param			folder	query		string	false	"Folder prefix"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotes(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		writeErr(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{name}.
//
//	@Summary		Get a single note by name
//	@Tags			notes
//	@Produce		json
//	@Param			name	path		string	true	"Note name"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	note, err := h.svc.ReadNote(r.Context(), name)
	if err != nil {
		writeErr(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNoteBody)
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Name, req.Folder, req.Content)
	if err != nil {
		writeErr(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{name}.
//
//	@Summary		Replace a note's content with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			name		path	string				true	"Note name"
//	@Param			If-Match	header	string				false	"Checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Updated content"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNoteBody)
	name := noteName(r)
	var req UpdateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNote(r.Context(), name, req.Content, ifMatch)
	if err != nil {
		writeErr(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AppendNote handles POST /api/notes/{name}/append.
func (h *Handler) AppendNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNoteBody)
	var req AppendNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.AppendToNote(r.Context(), noteName(r), req.Text)
	if err != nil {
		writeErr(w, "append note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RenameNote handles POST /api/notes/{name}/rename.
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	var req RenameNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.RenameNote(r.Context(), noteName(r), req.NewName)
	if err != nil {
		writeErr(w, "rename note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// MoveNote handles POST /api/notes/{name}/move.
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.MoveNote(r.Context(), noteName(r), req.Folder)
	if err != nil {
		writeErr(w, "move note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{name}.
//
// The default is a soft delete into the trash folder; ?permanent=true
// removes the file and every index row.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	var err error
	if r.URL.Query().Get("permanent") == "true" {
		err = h.svc.PermanentlyDeleteNote(r.Context(), name)
	} else {
		err = h.svc.DeleteNote(r.Context(), name)
	}
	if err != nil {
		writeErr(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNoteProperties handles GET /api/notes/{name}/properties.
func (h *Handler) GetNoteProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.svc.GetNoteProperties(r.Context(), noteName(r))
	if err != nil {
		writeErr(w, "note properties", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": props})
}

// Search handles GET /api/search.
//
//	@Summary		Tag and full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query; #tag form searches by tag"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.SearchNotes(r.Context(), q)
	if err != nil {
		writeErr(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.GetAllTags(r.Context())
	if err != nil {
		writeErr(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// NotesWithTag handles GET /api/tags/{tag}/notes.
func (h *Handler) NotesWithTag(w http.ResponseWriter, r *http.Request) {
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	results, err := h.svc.GetNotesWithTag(r.Context(), tag)
	if err != nil {
		writeErr(w, "notes with tag", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// RecentNotes handles GET /api/recent.
func (h *Handler) RecentNotes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notes, err := h.svc.GetRecentNotes(r.Context(), limit)
	if err != nil {
		writeErr(w, "recent notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// ListBases handles GET /api/bases.
func (h *Handler) ListBases(w http.ResponseWriter, r *http.Request) {
	bases, err := h.svc.ListBases(r.Context())
	if err != nil {
		writeErr(w, "list bases", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bases": bases})
}

// CreateBase handles POST /api/bases.
func (h *Handler) CreateBase(w http.ResponseWriter, r *http.Request) {
	var b base.Base
	if !decodeBody(w, r, &b) {
		return
	}
	id, err := h.svc.CreateBase(r.Context(), &b)
	if err != nil {
		writeErr(w, "create base", err)
		return
	}
	b.ID = id
	writeJSON(w, http.StatusCreated, &b)
}

// GetBase handles GET /api/bases/{id}.
func (h *Handler) GetBase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid base id"))
		return
	}
	b, err := h.svc.Bases().Get(id)
	if err != nil {
		writeErr(w, "get base", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBase handles PUT /api/bases/{id}.
func (h *Handler) UpdateBase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid base id"))
		return
	}
	var b base.Base
	if !decodeBody(w, r, &b) {
		return
	}
	b.ID = id
	if err := h.svc.UpdateBase(r.Context(), &b); err != nil {
		writeErr(w, "update base", err)
		return
	}
	writeJSON(w, http.StatusOK, &b)
}

// DeleteBase handles DELETE /api/bases/{id}.
func (h *Handler) DeleteBase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid base id"))
		return
	}
	if err := h.svc.DeleteBase(r.Context(), id); err != nil {
		writeErr(w, "delete base", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunBaseView handles GET /api/bases/{id}/views/{view}.
//
// Cells come back fully evaluated: formulas in special rows are computed
// against the data rows, and every value is rendered to its display string.
func (h *Handler) RunBaseView(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid base id"))
		return
	}
	b, err := h.svc.Bases().Get(id)
	if err != nil {
		writeErr(w, "run base view", err)
		return
	}
	viewID := chi.URLParam(r, "view")
	res, err := base.RunView(h.eng, b, viewID)
	if err != nil {
		writeErr(w, "run base view", err)
		return
	}

	cells := make([][]string, len(res.Cells))
	for i, row := range res.Cells {
		out := make([]string, len(row))
		for j, c := range row {
			out[j] = c.String()
		}
		cells[i] = out
	}

	v, _ := b.View(viewID)
	specials := make([]map[string]any, len(res.SpecialRowIndex))
	for i, idx := range res.SpecialRowIndex {
		m := map[string]any{"index": idx}
		if v.SpecialRows[i].CSSClass != "" {
			m["css_class"] = v.SpecialRows[i].CSSClass
		}
		specials[i] = m
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns":           res.Columns,
		"cells":             cells,
		"special_row_start": res.SpecialRowStart,
		"special_rows":      specials,
	})
}

// UpdateRecordCell handles POST /api/records/cell.
//
// The referenced value propagates to every bracket group in the note whose
// key set and values match the reference.
func (h *Handler) UpdateRecordCell(w http.ResponseWriter, r *http.Request) {
	var req RecordCellRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.db.GetNoteByName(req.NoteName)
	if err != nil {
		writeErr(w, "update record cell", err)
		return
	}
	rewritten, err := h.writer.UpdateRecordCell(n, req.Ref, req.Key, req.Value)
	if err != nil {
		writeErr(w, "update record cell", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordWriteResponse{Rewritten: rewritten})
}

// AddRecordProperty handles POST /api/records/property.
func (h *Handler) AddRecordProperty(w http.ResponseWriter, r *http.Request) {
	var req RecordCellRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.db.GetNoteByName(req.NoteName)
	if err != nil {
		writeErr(w, "add record property", err)
		return
	}
	rewritten, err := h.writer.AddPropertyToGroup(n, req.Ref, req.Key, req.Value)
	if err != nil {
		writeErr(w, "add record property", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordWriteResponse{Rewritten: rewritten})
}

// ExpandRecord handles POST /api/records/expand.
func (h *Handler) ExpandRecord(w http.ResponseWriter, r *http.Request) {
	var req ExpandRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.db.GetNoteByName(req.NoteName)
	if err != nil {
		writeErr(w, "expand record", err)
		return
	}
	rewritten, err := h.writer.ExpandIndividualToGroup(n, req.Key, req.Value, req.NewKey, req.NewValue)
	if err != nil {
		writeErr(w, "expand record", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordWriteResponse{Rewritten: rewritten})
}
