package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/epubpress/internal/archive/archivetest"
	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/db"
	"github.com/hpungsan/epubpress/internal/errors"
	"github.com/hpungsan/epubpress/internal/session"
)

// testSetup creates a temporary database, config and session for testing.
func testSetup(t *testing.T) (*Handlers, func()) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests
	sess := session.New(cfg, nil)

	cleanup := func() {
		sess.Close()
		database.Close()
	}

	return NewHandlers(database, cfg, sess), cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func sampleBase64(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(archivetest.Sample(t))
}

// --- archive tools ---

func TestHandleArchiveProcess_Data(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()

	result, err := h.HandleArchiveProcess(context.Background(), makeRequest(map[string]any{
		"data":      sampleBase64(t),
		"file_name": "book.epub",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := parseOutput(t, result)
	if output["type"] != "EPUB_PROCESSING_STATUS" {
		t.Errorf("type = %v", output["type"])
	}
	if output["status"] != "success" || output["fileName"] != "book.epub" {
		t.Errorf("unexpected reply: %v", output)
	}
	fileList, _ := output["fileList"].([]any)
	if len(fileList) != len(archivetest.SamplePaths) {
		t.Errorf("fileList = %v", fileList)
	}
	manifest, _ := output["manifest"].([]any)
	if len(manifest) != len(archivetest.SamplePaths) {
		t.Errorf("manifest has %d entries, want %d", len(manifest), len(archivetest.SamplePaths))
	}
	if !h.sess.Store().Contains("cover.png") {
		t.Error("expected cover.png in cache")
	}
}

func TestHandleArchiveProcess_Path(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "disk.epub")
	if err := os.WriteFile(path, archivetest.Sample(t), 0600); err != nil {
		t.Fatal(err)
	}

	result, _ := h.HandleArchiveProcess(context.Background(), makeRequest(map[string]any{"path": path}))
	output := parseOutput(t, result)
	if output["fileName"] != "disk.epub" || output["status"] != "success" {
		t.Errorf("unexpected reply: %v", output)
	}
}

func TestHandleArchiveProcess_ErrorReplies(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
	}{
		{
			name:      "no file",
			args:      map[string]any{"file_name": "none.epub"},
			wantError: "File is undefined or not provided",
		},
		{
			name:      "not an archive",
			args:      map[string]any{"file_name": "bad.epub", "data": base64.StdEncoding.EncodeToString([]byte("not a zip"))},
			wantError: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := h.HandleArchiveProcess(context.Background(), makeRequest(tt.args))
			output := parseOutput(t, result)
			if output["status"] != "error" {
				t.Fatalf("status = %v, want error", output["status"])
			}
			if tt.wantError != "" && output["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", output["error"], tt.wantError)
			}
			if _, ok := output["fileList"]; ok {
				t.Error("error reply must not carry fileList")
			}
		})
	}
}

func TestHandleArchiveProcess_RequestErrors(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()

	result, _ := h.HandleArchiveProcess(context.Background(), makeRequest(map[string]any{
		"path": "/tmp/x.epub",
		"data": sampleBase64(t),
	}))
	if !result.IsError {
		t.Fatal("expected error for path and data together")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleArchiveProcess(context.Background(), makeRequest(map[string]any{
		"path": filepath.Join(t.TempDir(), "missing.epub"),
	}))
	assertErrorCode(t, result, "FILE_NOT_FOUND")

	result, _ = h.HandleArchiveProcess(context.Background(), makeRequest(map[string]any{
		"data": "%%% not base64",
	}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleArchiveLookup(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()
	if _, err := h.sess.Store().Extract(context.Background(), archivetest.Sample(t)); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	result, _ := h.HandleArchiveLookup(context.Background(), makeRequest(map[string]any{"path": "/epub/OEBPS/chapter1.xhtml"}))
	output := parseOutput(t, result)
	if output["text"] != archivetest.ChapterBody {
		t.Errorf("text = %v", output["text"])
	}
	if output["content_type"] != "application/xhtml+xml" || output["mode"] != "text" {
		t.Errorf("unexpected metadata: %v", output)
	}

	result, _ = h.HandleArchiveLookup(context.Background(), makeRequest(map[string]any{"path": "cover.png"}))
	output = parseOutput(t, result)
	data, err := base64.StdEncoding.DecodeString(output["data"].(string))
	if err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if string(data) != string(archivetest.PNGHeader) {
		t.Errorf("png bytes = %v", data)
	}

	for _, path := range []string{"OEBPS/", "missing.txt"} {
		result, _ = h.HandleArchiveLookup(context.Background(), makeRequest(map[string]any{"path": path}))
		assertErrorCode(t, result, "NOT_FOUND")
	}
}

func TestHandleArchiveListAndReset(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()
	if _, err := h.sess.Store().Extract(context.Background(), archivetest.Sample(t)); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	result, _ := h.HandleArchiveList(context.Background(), makeRequest(nil))
	output := parseOutput(t, result)
	paths, _ := output["paths"].([]any)
	if len(paths) != len(archivetest.SamplePaths) {
		t.Errorf("paths = %v", paths)
	}

	result, _ = h.HandleArchiveReset(context.Background(), makeRequest(nil))
	output = parseOutput(t, result)
	if output["reset"] != true {
		t.Errorf("reset = %v", output["reset"])
	}
	if h.sess.Store().Len() != 0 {
		t.Error("expected empty cache after reset")
	}
}

// --- book tools ---

func TestHandleBook_Lifecycle(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()
	ctx := context.Background()

	// add
	result, _ := h.HandleBookAdd(ctx, makeRequest(map[string]any{
		"data":      sampleBase64(t),
		"file_name": "Life_Cycle.epub",
		"notes":     "## notes",
	}))
	added := parseOutput(t, result)
	id, _ := added["id"].(string)
	if id == "" {
		t.Fatalf("expected id, got %v", added)
	}
	if added["title"] != "Life Cycle" {
		t.Errorf("title = %v", added["title"])
	}

	// list
	result, _ = h.HandleBookList(ctx, makeRequest(map[string]any{"limit": 5}))
	listed := parseOutput(t, result)
	items, _ := listed["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %v", items)
	}

	// files
	result, _ = h.HandleBookFiles(ctx, makeRequest(map[string]any{"id": id}))
	files, _ := parseOutput(t, result)["files"].([]any)
	if len(files) != 1 {
		t.Fatalf("files = %v", files)
	}
	if f := files[0].(map[string]any); f["media_type"] != "application/epub+zip" {
		t.Errorf("media_type = %v", f["media_type"])
	}

	// open
	result, _ = h.HandleBookOpen(ctx, makeRequest(map[string]any{"id": id}))
	opened := parseOutput(t, result)
	reply, _ := opened["reply"].(map[string]any)
	if reply["status"] != "success" || reply["fileName"] != "Life_Cycle.epub" {
		t.Errorf("reply = %v", reply)
	}
	if !h.sess.Store().Contains("OEBPS/chapter1.xhtml") {
		t.Error("expected chapter in cache after open")
	}

	// export
	dest := filepath.Join(t.TempDir(), "out.epub")
	result, _ = h.HandleBookExport(ctx, makeRequest(map[string]any{"id": id, "path": dest}))
	exported := parseOutput(t, result)
	if exported["path"] != dest {
		t.Errorf("path = %v", exported["path"])
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("exported file missing: %v", err)
	}

	// delete
	result, _ = h.HandleBookDelete(ctx, makeRequest(map[string]any{"id": id}))
	deleted := parseOutput(t, result)
	if deleted["deleted"] != true {
		t.Errorf("deleted = %v", deleted["deleted"])
	}

	result, _ = h.HandleBookFiles(ctx, makeRequest(map[string]any{"id": id}))
	assertErrorCode(t, result, "NOT_FOUND")
	result, _ = h.HandleBookOpen(ctx, makeRequest(map[string]any{"id": id}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleBookAdd_Errors(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{"nothing", map[string]any{}, "INVALID_REQUEST"},
		{"data without file name", map[string]any{"data": sampleBase64(t)}, "INVALID_REQUEST"},
		{"not an archive", map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("nope")), "file_name": "x.epub"}, "INVALID_ARCHIVE"},
		{"wrong type", map[string]any{"title": 42}, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleBookAdd(context.Background(), makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			assertErrorCode(t, result, tt.code)
		})
	}
}

func TestHandleBookIDRequired(t *testing.T) {
	h, cleanup := testSetup(t)
	defer cleanup()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"book_files":  h.HandleBookFiles,
		"book_open":   h.HandleBookOpen,
		"book_delete": h.HandleBookDelete,
		"book_export": h.HandleBookExport,
	}
	for name, handle := range handlers {
		t.Run(name, func(t *testing.T) {
			result, _ := handle(context.Background(), makeRequest(map[string]any{}))
			assertErrorCode(t, result, "INVALID_REQUEST")
		})
	}
}

// --- registration ---

func newTestServerTools(t *testing.T, mutate func(*config.Config)) map[string]bool {
	t.Helper()
	h, cleanup := testSetup(t)
	defer cleanup()

	cfg := *h.cfg
	if mutate != nil {
		mutate(&cfg)
	}
	s := NewServer(h.db, &cfg, h.sess, "test")

	names := make(map[string]bool)
	for name := range s.ListTools() {
		names[name] = true
	}
	return names
}

func TestServerRegistration(t *testing.T) {
	tools := newTestServerTools(t, nil)

	expectedTools := []string{
		"archive_process",
		"archive_lookup",
		"archive_list",
		"archive_reset",
		"book_add",
		"book_list",
		"book_files",
		"book_open",
		"book_delete",
		"book_export",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if !tools[name] {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	tools := newTestServerTools(t, func(cfg *config.Config) {
		cfg.DisabledTools = []string{"archive_reset", "book_delete", "book_delete"}
	})

	if len(tools) != 8 {
		t.Errorf("registered tool count = %d, want 8", len(tools))
	}
	for _, name := range []string{"archive_reset", "book_delete"} {
		if tools[name] {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	tools := newTestServerTools(t, func(cfg *config.Config) {
		cfg.DisabledTypes = []string{"book"}
	})

	if len(tools) != 4 {
		t.Errorf("registered tool count = %d, want 4", len(tools))
	}
	for name := range tools {
		if GetTypeForTool(name) != "archive" {
			t.Errorf("tool %q should have been disabled with its type", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	tools := newTestServerTools(t, func(cfg *config.Config) {
		cfg.DisabledTools = AllToolNames()
	})

	if len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"archive_reset", "book_delete"}, 0},
		{"one unknown", []string{"book_add", "fake_tool"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	unknown := ValidateDisabledTypes([]string{"archive", "book", "chapter"})
	if len(unknown) != 1 || unknown[0] != "chapter" {
		t.Errorf("unknown = %v, want [chapter]", unknown)
	}
}

func TestExpandTypesToTools(t *testing.T) {
	if got := ExpandTypesToTools(nil); got != nil {
		t.Errorf("ExpandTypesToTools(nil) = %v, want nil", got)
	}

	got := ExpandTypesToTools([]string{"archive"})
	sort.Strings(got)
	want := []string{"archive_list", "archive_lookup", "archive_process", "archive_reset"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ExpandTypesToTools(archive) = %v, want %v", got, want)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 10 {
		t.Errorf("AllToolNames() returned %d names, want 10", len(names))
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

// --- results ---

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewEntryNotFound("OEBPS/missing.xhtml"))

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	details, ok := errObj["details"].(map[string]any)
	if !ok || details["path"] != "OEBPS/missing.xhtml" {
		t.Fatalf("details = %v", errObj["details"])
	}
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	assertErrorCode(t, r, "INTERNAL")
	if extractErrorMessage(r) == "" {
		t.Fatal("expected error payload")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
