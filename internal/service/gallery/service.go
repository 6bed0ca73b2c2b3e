package gallery

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	client "github.com/bulatminnakhmetov/brigadka-gallery/internal/client/gallery"
)

// API is the part of the gallery API the service calls
type API interface {
	ListImages(ctx context.Context) ([]client.Image, error)
	UploadImage(ctx context.Context, name string, file client.Upload) (*client.UploadResponse, error)
	DeleteImage(ctx context.Context, id string) error
}

// PreviewStore holds local previews of selected files
type PreviewStore interface {
	Acquire(contentType string, data []byte) string
	Release(url string)
}

// Service owns the gallery view state and runs the list, upload and
// delete workflows against the API.
//
// Every network operation takes a generation number when it starts. Only
// the operation holding the latest generation may write its result or clear
// the loading flag, so a slow response never overwrites a newer one.
type Service struct {
	api      API
	previews PreviewStore
	opts     Options
	log      *zap.Logger

	mu          sync.Mutex
	state       State
	selection   *Selection
	generation  uint64
	subscribers map[int]chan State
	nextSubID   int
	closed      bool
}

// NewService creates a gallery service
func NewService(api API, previews PreviewStore, opts Options, log *zap.Logger) *Service {
	opts = opts.withDefaults()
	return &Service{
		api:      api,
		previews: previews,
		opts:     opts,
		log:      log,
		state: State{
			Preview: opts.PlaceholderURL,
			Images:  []client.Image{},
		},
		subscribers: make(map[int]chan State),
	}
}

// List refreshes the image list from the API
func (s *Service) List(ctx context.Context) {
	gen := s.begin()

	images, err := s.api.ListImages(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.log.Debug("dropping stale image list", zap.Uint64("generation", gen))
		return
	}

	if err != nil {
		if client.IsNetworkError(err) {
			s.state.ErrorMessage = MsgServerError
		}
		s.log.Error("failed to list images", zap.Error(err))
	} else {
		s.state.Images = images
	}

	s.state.Loading = false
	s.notifyLocked()
}

// SelectFile validates a picked file and makes it the pending selection.
// A nil file means the pick was cancelled and nothing changes.
func (s *Service) SelectFile(file UploadedFile) error {
	if file == nil {
		return nil
	}

	if !allowedExtension(file.GetFilename()) {
		s.rejectSelection(ErrInvalidExtension.Message)
		return ErrInvalidExtension
	}

	if file.GetSize() > s.opts.MaxFileSize {
		s.rejectSelection(ErrFileTooBig.Message)
		return ErrFileTooBig
	}

	data, err := s.readFile(file)
	if err != nil {
		s.log.Error("failed to read selected file",
			zap.String("filename", file.GetFilename()),
			zap.Error(err))
		s.rejectSelection(MsgReadFailed)
		return err
	}
	if int64(len(data)) > s.opts.MaxFileSize {
		s.rejectSelection(ErrFileTooBig.Message)
		return ErrFileTooBig
	}

	contentType := file.GetHeader().Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension("." + extension(file.GetFilename()))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	sel := &Selection{
		Filename:    file.GetFilename(),
		ContentType: contentType,
		Data:        data,
		PreviewURL:  s.previews.Acquire(contentType, data),
	}

	s.mu.Lock()
	old := s.selection
	s.selection = sel
	s.state.Preview = sel.PreviewURL
	s.state.ErrorMessage = ""
	s.state.HasSelection = true
	s.state.SelectedFilename = sel.Filename
	s.notifyLocked()
	s.mu.Unlock()

	if old != nil {
		s.previews.Release(old.PreviewURL)
	}
	return nil
}

// SetName stores the name typed into the form
func (s *Service) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Name = name
	s.notifyLocked()
}

// Submit uploads the pending selection under name and refreshes the list on
// success. Validation failures are returned and reported without any request.
func (s *Service) Submit(ctx context.Context, name string) error {
	s.mu.Lock()
	s.state.Name = name

	if strings.TrimSpace(name) == "" {
		s.state.ErrorMessage = ErrNameRequired.Message
		s.notifyLocked()
		s.mu.Unlock()
		return ErrNameRequired
	}

	sel := s.selection
	if sel == nil {
		s.state.ErrorMessage = ErrFileRequired.Message
		s.notifyLocked()
		s.mu.Unlock()
		return ErrFileRequired
	}

	// The selection is consumed by this attempt whatever its outcome.
	s.selection = nil
	s.state.HasSelection = false
	s.state.SelectedFilename = ""
	s.generation++
	gen := s.generation
	s.state.Loading = true
	s.notifyLocked()
	s.mu.Unlock()

	resp, err := s.api.UploadImage(ctx, name, client.Upload{
		Filename:    sel.Filename,
		ContentType: sel.ContentType,
		Body:        bytes.NewReader(sel.Data),
	})
	s.previews.Release(sel.PreviewURL)

	s.mu.Lock()
	if s.state.Preview == sel.PreviewURL {
		s.state.Preview = s.opts.PlaceholderURL
	}

	if gen != s.generation {
		// a newer operation owns loading and errors; a successful upload may
		// still show its image unless another preview has taken the slot
		if err == nil && s.state.Preview == s.opts.PlaceholderURL {
			s.state.Preview = resp.URL
		}
		s.log.Debug("dropping stale upload result", zap.Uint64("generation", gen))
		s.notifyLocked()
		s.mu.Unlock()
		if err != nil {
			s.log.Error("failed to upload image", zap.String("name", name), zap.Error(err))
			return nil
		}
		s.List(ctx)
		return nil
	}

	if err != nil {
		s.state.ErrorMessage = uploadErrorMessage(err)
		s.state.Loading = false
		s.notifyLocked()
		s.mu.Unlock()

		s.log.Error("failed to upload image",
			zap.String("name", name),
			zap.String("filename", sel.Filename),
			zap.Error(err))
		return nil
	}

	s.state.Preview = resp.URL
	s.state.ErrorMessage = ""
	s.state.Name = ""
	s.notifyLocked()
	s.mu.Unlock()

	s.log.Info("image uploaded",
		zap.String("name", name),
		zap.String("url", resp.URL))

	s.List(ctx)
	return nil
}

// DeleteImage removes an image and then refreshes the list whatever the
// outcome of the delete request.
func (s *Service) DeleteImage(ctx context.Context, id string) {
	s.begin()

	if err := s.api.DeleteImage(ctx, id); err != nil {
		s.log.Error("failed to delete image", zap.String("id", id), zap.Error(err))
	} else {
		s.log.Info("image deleted", zap.String("id", id))
	}

	s.List(ctx)
}

// Snapshot returns a copy of the current state
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving the current state and every later
// change. A slow reader only sees the newest state. Call the returned
// function to unsubscribe.
func (s *Service) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

// Close releases the pending preview and ends every subscription
func (s *Service) Close() {
	s.mu.Lock()
	sel := s.selection
	s.selection = nil
	s.state.HasSelection = false
	s.state.SelectedFilename = ""
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.closed = true
	s.mu.Unlock()

	if sel != nil {
		s.previews.Release(sel.PreviewURL)
	}
}

// begin starts a network operation and returns its generation
func (s *Service) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state.Loading = true
	s.notifyLocked()
	return s.generation
}

func (s *Service) rejectSelection(message string) {
	s.mu.Lock()
	old := s.selection
	s.selection = nil
	s.state.HasSelection = false
	s.state.SelectedFilename = ""
	s.state.ErrorMessage = message
	if old != nil && s.state.Preview == old.PreviewURL {
		s.state.Preview = s.opts.PlaceholderURL
	}
	s.notifyLocked()
	s.mu.Unlock()

	if old != nil {
		s.previews.Release(old.PreviewURL)
	}
}

func (s *Service) readFile(file UploadedFile) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, s.opts.MaxFileSize+1))
}

func (s *Service) snapshotLocked() State {
	snap := s.state
	snap.Images = make([]client.Image, len(s.state.Images))
	copy(snap.Images, s.state.Images)
	return snap
}

func (s *Service) notifyLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		// drop the unread state, keep only the newest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func uploadErrorMessage(err error) string {
	if httpErr, ok := client.AsHTTPError(err); ok && httpErr.Status == http.StatusBadRequest {
		if strings.TrimSpace(httpErr.Body) != "" {
			return httpErr.Body
		}
	}
	if client.IsNetworkError(err) {
		return MsgServerError
	}
	return MsgUploadFailed
}

// extension returns the lower-cased text after the last dot, or the whole
// name when it has no dot.
func extension(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		filename = filename[i+1:]
	}
	return strings.ToLower(filename)
}

func allowedExtension(filename string) bool {
	ext := extension(filename)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
