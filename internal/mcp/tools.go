package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Names follow "type_action" so whole types can be
// disabled through config.

var archiveProcessToolDef = mcp.NewTool("archive_process",
	mcp.WithDescription("Extract an e-book archive into the session cache. "+
		"Pass either path (a .epub/.zip file on disk) or data (base64 archive bytes). "+
		"Returns the processing status message with the file list and manifest, "+
		"or status \"error\" with a reason."),
	mcp.WithString("path", mcp.Description("Archive file on disk")),
	mcp.WithString("data", mcp.Description("Base64-encoded archive bytes")),
	mcp.WithString("file_name", mcp.Description("File name echoed in the reply when data is used")),
)

var archiveLookupToolDef = mcp.NewTool("archive_lookup",
	mcp.WithDescription("Read one cached archive entry. Text entries are returned as text, "+
		"binary entries as base64 data. Directories are not readable."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Archive-relative path, optionally under the reserved prefix")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var archiveListToolDef = mcp.NewTool("archive_list",
	mcp.WithDescription("List every path in the session cache with cache statistics."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var archiveResetToolDef = mcp.NewTool("archive_reset",
	mcp.WithDescription("Discard everything in the session cache."),
	mcp.WithDestructiveHintAnnotation(true),
)

var bookAddToolDef = mcp.NewTool("book_add",
	mcp.WithDescription("Add an e-book archive to the library. Pass either path or data with file_name."),
	mcp.WithString("path", mcp.Description("Archive file on disk")),
	mcp.WithString("data", mcp.Description("Base64-encoded archive bytes")),
	mcp.WithString("file_name", mcp.Description("Original file name, required with data")),
	mcp.WithString("title", mcp.Description("Display title; defaults to the file name")),
	mcp.WithString("notes", mcp.Description("Markdown notes")),
)

var bookListToolDef = mcp.NewTool("book_list",
	mcp.WithDescription("List library books, newest first."),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var bookFilesToolDef = mcp.NewTool("book_files",
	mcp.WithDescription("List the files stored for a book, without their contents."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Book ID")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var bookOpenToolDef = mcp.NewTool("book_open",
	mcp.WithDescription("Extract a stored book into the session cache and return the processing status."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Book ID")),
)

var bookDeleteToolDef = mcp.NewTool("book_delete",
	mcp.WithDescription("Delete a book and its stored files. Cached entries are not evicted."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Book ID")),
	mcp.WithDestructiveHintAnnotation(true),
)

var bookExportToolDef = mcp.NewTool("book_export",
	mcp.WithDescription("Write a book's stored archive to disk. "+
		"Defaults to ~/.epubpress/library/<title>-<timestamp>.epub."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Book ID")),
	mcp.WithString("path", mcp.Description("Destination .epub/.zip path")),
)
