package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, db *index.DB, store storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, db, store)
	ah := NewAttachmentHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{name}", h.GetNote)
	r.Put("/notes/{name}", h.UpdateNote)
	r.Delete("/notes/{name}", h.DeleteNote)
	r.Post("/notes/{name}/append", h.AppendNote)
	r.Post("/notes/{name}/rename", h.RenameNote)
	r.Post("/notes/{name}/move", h.MoveNote)
	r.Get("/notes/{name}/properties", h.GetNoteProperties)

	// Search and tags.
	r.Get("/search", h.Search)
	r.Get("/tags", h.ListTags)
	r.Get("/tags/{tag}/notes", h.NotesWithTag)
	r.Get("/recent", h.RecentNotes)

	// Bases and views.
	r.Get("/bases", h.ListBases)
	r.Post("/bases", h.CreateBase)
	r.Get("/bases/{id}", h.GetBase)
	r.Put("/bases/{id}", h.UpdateBase)
	r.Delete("/bases/{id}", h.DeleteBase)
	r.Get("/bases/{id}/views/{view}", h.RunBaseView)

	// Grouped record writes.
	r.Post("/records/cell", h.UpdateRecordCell)
	r.Post("/records/property", h.AddRecordProperty)
	r.Post("/records/expand", h.ExpandRecord)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
