// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/base"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/storage"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	store storage.Provider
}

// New creates a new MCP server with all Laguz tools registered.
func New(svc *noteservice.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note. Content should follow the "+
			"canonical note format (inline [key::value] properties, #tags). Read the "+
			"contract first via the get_note_contract tool or the laguz://note-format resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Unique note name, no extension")),
		mcp.WithString("folder", mcp.Description("Optional folder path inside the vault")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note by name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace a note's content."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("append_to_note",
		mcp.WithDescription("Append text at the end of a note, separated by a newline."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to append")),
	), s.appendToNote)

	s.mcp.AddTool(mcp.NewTool("rename_note",
		mcp.WithDescription("Rename a note, keeping its folder and index history."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Current note name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New note name")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Move a note to the trash folder. Trashed notes stay "+
			"recoverable and disappear from listings and search."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("Move a note into another folder."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Destination folder")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes below a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes. Plain text runs full-text search; a #tag query "+
			"matches notes carrying that tag."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_all_tags",
		mcp.WithDescription("List every tag with its usage count."),
	), s.getAllTags)

	s.mcp.AddTool(mcp.NewTool("get_notes_with_tag",
		mcp.WithDescription("List notes carrying the given tag, case-insensitively."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name, with or without #")),
	), s.getNotesWithTag)

	s.mcp.AddTool(mcp.NewTool("get_recent_notes",
		mcp.WithDescription("List the most recently updated notes."),
		mcp.WithNumber("limit", mcp.Description("Max notes to return (default 10)")),
	), s.getRecentNotes)

	s.mcp.AddTool(mcp.NewTool("get_note_properties",
		mcp.WithDescription("List the inline [key::value] properties of a note with their spans and groups."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
	), s.getNoteProperties)

	s.mcp.AddTool(mcp.NewTool("list_bases",
		mcp.WithDescription("List saved base (table view) definitions."),
	), s.listBases)

	s.mcp.AddTool(mcp.NewTool("create_base",
		mcp.WithDescription("Create a base from a YAML definition. Unknown keys are preserved."),
		mcp.WithString("config", mcp.Required(), mcp.Description("YAML base definition")),
	), s.createBase)

	s.mcp.AddTool(mcp.NewTool("update_base",
		mcp.WithDescription("Replace a base definition by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Base id")),
		mcp.WithString("config", mcp.Required(), mcp.Description("YAML base definition")),
	), s.updateBase)

	s.mcp.AddTool(mcp.NewTool("delete_base",
		mcp.WithDescription("Delete a base definition by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Base id")),
	), s.deleteBase)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Laguz note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image or PDF from a URL (or data: URI) and store it "+
			"in the shared attachments directory. Returns a ready-to-paste Markdown image."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data: URI")),
		mcp.WithString("filename", mcp.Description("Optional target filename")),
	), s.uploadAsset)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("laguz://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder := req.GetString("folder", "")

	d, err := s.svc.CreateNote(ctx, name, folder, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", d.Name)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.ReadNote(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.UpdateNote(ctx, name, content, ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", name)), nil
}

func (s *Server) appendToNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.AppendToNote(ctx, name, text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("appended to: %s", name)), nil
}

func (s *Server) renameNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.RenameNote(ctx, name, newName); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s -> %s", name, newName)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("trashed: %s", name)), nil
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.MoveNote(ctx, name, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s -> %s", name, d.Folder)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")
	notes, err := s.svc.ListNotes(ctx, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var names []string
	for _, n := range notes {
		names = append(names, n.Name)
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchNotes(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getAllTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.GetAllTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, tag := range tags {
		lines = append(lines, fmt.Sprintf("#%s (%d)", tag.Name, tag.UsageCount))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNotesWithTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.GetNotesWithTag(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) getRecentNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 10))
	notes, err := s.svc.GetRecentNotes(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var names []string
	for _, n := range notes {
		names = append(names, n.Name)
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) getNoteProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	props, err := s.svc.GetNoteProperties(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(props, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listBases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bases, err := s.svc.ListBases(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, b := range bases {
		lines = append(lines, fmt.Sprintf("%d: %s (%s)", b.ID, b.Name, b.SourceType))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) createBase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := base.DecodeConfig(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.CreateBase(ctx, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strconv.FormatInt(id, 10)), nil
}

func (s *Server) updateBase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := base.DecodeConfig(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b.ID = int64(id)
	if err := s.svc.UpdateBase(ctx, b); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("updated"), nil
}

func (s *Server) deleteBase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteBase(ctx, int64(id)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("deleted"), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "laguz://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
