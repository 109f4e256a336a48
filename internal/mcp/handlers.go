package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/errors"
	"github.com/hpungsan/epubpress/internal/ops"
	"github.com/hpungsan/epubpress/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db   *sql.DB
	cfg  *config.Config
	sess *session.Session
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, sess *session.Session) *Handlers {
	return &Handlers{db: db, cfg: cfg, sess: sess}
}

// Request types for each tool

// ArchiveProcessRequest represents the arguments for archive_process.
// Data is base64 in JSON.
type ArchiveProcessRequest struct {
	Path     string `json:"path,omitempty"`
	Data     []byte `json:"data,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// ArchiveLookupRequest represents the arguments for archive_lookup.
type ArchiveLookupRequest struct {
	Path string `json:"path"`
}

// BookAddRequest represents the arguments for book_add.
type BookAddRequest struct {
	Path     string  `json:"path,omitempty"`
	Data     []byte  `json:"data,omitempty"`
	FileName string  `json:"file_name,omitempty"`
	Title    *string `json:"title,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// BookListRequest represents the arguments for book_list.
type BookListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// BookIDRequest represents the arguments for tools that take only a book ID.
type BookIDRequest struct {
	ID string `json:"id"`
}

// BookExportRequest represents the arguments for book_export.
type BookExportRequest struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

// Handler implementations

// HandleArchiveProcess handles the archive_process tool call. A failed
// extraction is a successful tool call carrying an error status message.
func (h *Handlers) HandleArchiveProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArchiveProcessRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path != "" && input.Data != nil {
		return errorResult(errors.NewInvalidRequest("pass either path or data, not both")), nil
	}

	if input.Path != "" {
		reply, err := ops.ProcessFile(ctx, h.cfg, h.sess, ops.ProcessFileInput{Path: input.Path})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(reply)
	}

	reply, err := ops.ProcessData(ctx, h.sess, ops.ProcessDataInput{
		FileName: input.FileName,
		Data:     input.Data,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(reply)
}

// HandleArchiveLookup handles the archive_lookup tool call.
func (h *Handlers) HandleArchiveLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArchiveLookupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ArchiveLookup(h.sess.Resolver(), h.sess.Store(), ops.ArchiveLookupInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleArchiveList handles the archive_list tool call.
func (h *Handlers) HandleArchiveList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.ArchiveList(h.sess.Store()))
}

// HandleArchiveReset handles the archive_reset tool call.
func (h *Handlers) HandleArchiveReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.ArchiveReset(h.sess.Store()))
}

// HandleBookAdd handles the book_add tool call.
func (h *Handlers) HandleBookAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddBook(ctx, h.db, h.cfg, ops.AddBookInput{
		Path:     input.Path,
		Data:     input.Data,
		FileName: input.FileName,
		Title:    input.Title,
		Notes:    input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookList handles the book_list tool call.
func (h *Handlers) HandleBookList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListBooks(ctx, h.db, ops.ListBooksInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookFiles handles the book_files tool call.
func (h *Handlers) HandleBookFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.BookFiles(ctx, h.db, ops.BookFilesInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookOpen handles the book_open tool call.
func (h *Handlers) HandleBookOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.OpenBook(ctx, h.db, h.sess, ops.OpenBookInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookDelete handles the book_delete tool call.
func (h *Handlers) HandleBookDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteBook(ctx, h.db, ops.DeleteBookInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBookExport handles the book_export tool call.
func (h *Handlers) HandleBookExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ExportBook(ctx, h.db, h.cfg, ops.ExportBookInput{
		ID:   input.ID,
		Path: input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if pErr, ok := err.(*errors.PressError); ok {
		errorObj := map[string]any{
			"code":    pErr.Code,
			"message": pErr.Message,
			"status":  pErr.Status,
		}
		if pErr.Code != errors.ErrInternal && pErr.Details != nil {
			errorObj["details"] = pErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
