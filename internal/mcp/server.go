package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/session"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"archive", "book"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"archive_process": {
		def:     archiveProcessToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveProcess },
	},
	"archive_lookup": {
		def:     archiveLookupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveLookup },
	},
	"archive_list": {
		def:     archiveListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveList },
	},
	"archive_reset": {
		def:     archiveResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveReset },
	},
	"book_add": {
		def:     bookAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookAdd },
	},
	"book_list": {
		def:     bookListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookList },
	},
	"book_files": {
		def:     bookFilesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookFiles },
	},
	"book_open": {
		def:     bookOpenToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookOpen },
	},
	"book_delete": {
		def:     bookDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookDelete },
	},
	"book_export": {
		def:     bookExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookExport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "book_add" → "book").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the archive and library tools
// registered against sess. Tools listed in cfg.DisabledTools or belonging
// to cfg.DisabledTypes are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, sess *session.Session, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"epubpress",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, sess)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, sess *session.Session, version string) error {
	s := NewServer(db, cfg, sess, version)
	return server.ServeStdio(s)
}
