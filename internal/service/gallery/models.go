package gallery

import (
	"mime/multipart"
	"net/textproto"
	"strings"

	client "github.com/bulatminnakhmetov/brigadka-gallery/internal/client/gallery"
)

// AllowedExtensions lists the file extensions a selection may have, in display order
var AllowedExtensions = []string{"jpg", "jpeg", "png", "mp4"}

const (
	// DefaultMaxFileSize caps how much of a selected file is held in memory
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10 MB

	// DefaultPlaceholderURL is shown until a file is picked
	DefaultPlaceholderURL = "https://placehold.co/384?text=Click+here"
)

// User-visible messages for failures that are not validation errors
const (
	MsgServerError  = "server error"
	MsgUploadFailed = "upload failed"
	MsgReadFailed   = "could not read file"
)

// ValidationError is a client-side check that failed before any request was sent
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrNameRequired     = &ValidationError{Message: "name required"}
	ErrFileRequired     = &ValidationError{Message: "file required"}
	ErrInvalidExtension = &ValidationError{Message: "file extension not allowed, allowed: " + strings.Join(AllowedExtensions, ", ")}
	ErrFileTooBig       = &ValidationError{Message: "file too large"}
)

// State is a snapshot of everything the gallery view renders
type State struct {
	Loading          bool           `json:"loading"`
	ErrorMessage     string         `json:"error_message"`
	Preview          string         `json:"preview"`
	Name             string         `json:"name"`
	HasSelection     bool           `json:"has_selection"`
	SelectedFilename string         `json:"selected_filename,omitempty"`
	Images           []client.Image `json:"images"`
}

// Selection is a picked file waiting to be submitted
type Selection struct {
	Filename    string
	ContentType string
	Data        []byte
	PreviewURL  string
}

// Options tune the service
type Options struct {
	PlaceholderURL string
	MaxFileSize    int64
}

func (o Options) withDefaults() Options {
	if o.PlaceholderURL == "" {
		o.PlaceholderURL = DefaultPlaceholderURL
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	return o
}

// UploadedFile is a file handed over by the view
type UploadedFile interface {
	Open() (multipart.File, error)
	GetFilename() string
	GetSize() int64
	GetHeader() textproto.MIMEHeader
}

// FileHeaderWrapper adapts *multipart.FileHeader to UploadedFile
type FileHeaderWrapper struct {
	*multipart.FileHeader
}

func (w *FileHeaderWrapper) Open() (multipart.File, error) {
	return w.FileHeader.Open()
}

func (w *FileHeaderWrapper) GetFilename() string {
	return w.Filename
}

func (w *FileHeaderWrapper) GetSize() int64 {
	return w.Size
}

func (w *FileHeaderWrapper) GetHeader() textproto.MIMEHeader {
	return w.Header
}
