package intercept

import (
	"context"
	"encoding/json"
	"io"

	"github.com/hpungsan/epubpress/internal/archive"
	"github.com/hpungsan/epubpress/internal/errors"
)

// Message types.
const (
	TypeProcessArchive   = "PROCESS_EPUB"
	TypeProcessingStatus = "EPUB_PROCESSING_STATUS"
)

// Reply statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MissingFileMessage is the error text sent when a process message has no file.
const MissingFileMessage = "File is undefined or not provided"

// Message is one inbound request from a client context.
type Message struct {
	Type     string
	FileName string
	File     io.Reader
}

// Reply is the single status message sent back for a handled Message.
type Reply struct {
	Type     string
	FileName string
	Status   string
	FileList []string
	Manifest []archive.Entry
	Error    string
}

// OK reports whether the reply carries a successful extraction.
func (r Reply) OK() bool { return r.Status == StatusSuccess }

type successReply struct {
	Type     string          `json:"type"`
	FileName string          `json:"fileName"`
	Status   string          `json:"status"`
	FileList []string        `json:"fileList"`
	Manifest []archive.Entry `json:"manifest"`
}

type errorReply struct {
	Type     string `json:"type"`
	FileName string `json:"fileName"`
	Status   string `json:"status"`
	Error    string `json:"error"`
}

// MarshalJSON emits the success shape (fileList, manifest) or the error
// shape (error) depending on Status.
func (r Reply) MarshalJSON() ([]byte, error) {
	if r.Status == StatusError {
		return json.Marshal(errorReply{Type: r.Type, FileName: r.FileName, Status: r.Status, Error: r.Error})
	}
	fileList, manifest := r.FileList, r.Manifest
	if fileList == nil {
		fileList = []string{}
	}
	if manifest == nil {
		manifest = []archive.Entry{}
	}
	return json.Marshal(successReply{
		Type:     r.Type,
		FileName: r.FileName,
		Status:   r.Status,
		FileList: fileList,
		Manifest: manifest,
	})
}

// MessageHandler handles one message. The bool is false for message types
// the handler does not recognize; no reply is sent for those.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) (Reply, bool)
}

// Extractor is the write side of an archive store.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*archive.ExtractionResult, error)
}

// ArchiveHandler answers TypeProcessArchive messages by extracting the
// attached file into a store.
type ArchiveHandler struct {
	store    Extractor
	maxBytes int64
}

// NewArchiveHandler creates an ArchiveHandler. maxBytes <= 0 disables the
// size limit.
func NewArchiveHandler(store Extractor, maxBytes int64) *ArchiveHandler {
	return &ArchiveHandler{store: store, maxBytes: maxBytes}
}

// HandleMessage implements MessageHandler.
func (h *ArchiveHandler) HandleMessage(ctx context.Context, msg Message) (Reply, bool) {
	if msg.Type != TypeProcessArchive {
		return Reply{}, false
	}

	reply := Reply{Type: TypeProcessingStatus, FileName: msg.FileName}

	result, err := h.process(ctx, msg.File)
	if err != nil {
		reply.Status = StatusError
		reply.Error = errorText(err)
		return reply, true
	}

	reply.Status = StatusSuccess
	reply.FileList = result.FileList
	reply.Manifest = result.Manifest
	return reply, true
}

func (h *ArchiveHandler) process(ctx context.Context, file io.Reader) (*archive.ExtractionResult, error) {
	if file == nil {
		return nil, errors.NewMissingInput(MissingFileMessage)
	}
	data, err := readLimited(file, h.maxBytes)
	if err != nil {
		return nil, err
	}
	return h.store.Extract(ctx, data)
}

// readLimited reads r fully, failing with ARCHIVE_TOO_LARGE past limit bytes.
// The result is never nil, so an empty reader reaches the zip parser.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errors.NewArchiveTooLarge(limit)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func errorText(err error) string {
	if pErr, ok := err.(*errors.PressError); ok {
		return pErr.Message
	}
	return err.Error()
}
