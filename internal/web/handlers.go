package web

import (
	"bytes"
	"database/sql"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/errors"
	"github.com/hpungsan/epubpress/internal/intercept"
	"github.com/hpungsan/epubpress/internal/ops"
	"github.com/hpungsan/epubpress/internal/session"
)

// multipartMemory is how much of a multipart body is kept in memory
// before parts spill to temporary files.
const multipartMemory = 32 << 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	sess     *session.Session
	renderer *Renderer
}

// HandleLibrary handles GET / — list stored books.
func (h *Handlers) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListBooks(r.Context(), h.db, ops.ListBooksInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "library", LibraryPageData{
		PageData: PageData{
			Title:   "Library",
			Version: h.renderer.version,
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Cached:     h.sess.Store().Len(),
	})
}

// HandleUpload handles POST /books — add an uploaded archive to the library.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderer.renderError(w, r, errors.NewMissingInput("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	out, err := ops.AddBook(r.Context(), h.db, h.cfg, ops.AddBookInput{
		Data:     data,
		FileName: header.Filename,
		Title:    ptrString(r.FormValue("title")),
		Notes:    ptrString(r.FormValue("notes")),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, out)
		return
	}
	http.Redirect(w, r, "/books/"+out.ID, http.StatusSeeOther)
}

// HandleDetail handles GET /books/{id} — view a single book.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	h.renderBook(w, r, r.PathValue("id"), nil)
}

// HandleOpen handles POST /books/{id}/open — extract a stored book into the
// archive cache.
func (h *Handlers) HandleOpen(w http.ResponseWriter, r *http.Request) {
	out, err := ops.OpenBook(r.Context(), h.db, h.sess, ops.OpenBookInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.renderBook(w, r, out.BookID, out.Reply)
}

// HandleNotes handles POST /books/{id}/notes — replace a book's notes.
func (h *Handlers) HandleNotes(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	notes := r.FormValue("notes")
	out, err := ops.UpdateNotes(r.Context(), h.db, ops.UpdateNotesInput{
		ID:    r.PathValue("id"),
		Notes: &notes,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	http.Redirect(w, r, "/books/"+out.ID, http.StatusSeeOther)
}

// HandleDownload handles GET /books/{id}/archive — serve the stored archive.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	f, err := ops.BookArchive(r.Context(), h.db, ops.BookArchiveInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", f.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	http.ServeContent(w, r, f.Name, time.Unix(f.CreatedAt, 0), bytes.NewReader(f.Data))
}

// HandleDelete handles DELETE /books/{id} — remove a book and its files.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteBook(r.Context(), h.db, ops.DeleteBookInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMessage handles POST /messages — deliver one message to the archive
// worker. The multipart fields are type, fileName and file. The worker's
// reply is returned as JSON; a message it does not handle gets 204.
func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	msg := intercept.Message{
		Type:     r.FormValue("type"),
		FileName: r.FormValue("fileName"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		msg.File = file
		if msg.FileName == "" {
			msg.FileName = header.Filename
		}
	case !stderrors.Is(err, http.ErrMissingFile):
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid file part"))
		return
	}

	reply, ok, err := h.sess.Send(r.Context(), msg)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	renderJSON(w, http.StatusOK, reply)
}

// HandleArchive handles GET /archive — list the archive cache.
func (h *Handlers) HandleArchive(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.ArchiveList(h.sess.Store()))
}

// HandleArchiveReset handles DELETE /archive — empty the archive cache.
func (h *Handlers) HandleArchiveReset(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.ArchiveReset(h.sess.Store()))
}

// renderBook renders the detail page for id, with reply shown when set.
func (h *Handlers) renderBook(w http.ResponseWriter, r *http.Request, id string, reply *intercept.Reply) {
	b, err := ops.GetBook(r.Context(), h.db, ops.GetBookInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	files, err := ops.BookFiles(r.Context(), h.db, ops.BookFilesInput{ID: b.ID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"book":  b,
			"files": files.Files,
		})
		return
	}

	data := BookPageData{
		PageData: PageData{
			Title:   b.Title,
			Version: h.renderer.version,
		},
		Book:   b,
		Files:  files.Files,
		Prefix: h.sess.Resolver().Prefix(),
		Reply:  reply,
	}
	if b.Notes != nil {
		data.RenderedNotes = renderMarkdown(*b.Notes)
	}
	h.renderer.renderPage(w, "book", data)
}

// parseMultipart parses a multipart body capped slightly above
// max_archive_bytes so oversized uploads fail before they are buffered.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if limit := h.cfg.MaxArchiveBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewArchiveTooLarge(h.cfg.MaxArchiveBytes)
		}
		return errors.NewInvalidRequest("invalid multipart form")
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
