package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	client "github.com/bulatminnakhmetov/brigadka-gallery/internal/client/gallery"
	"github.com/bulatminnakhmetov/brigadka-gallery/internal/service/gallery"
	"github.com/bulatminnakhmetov/brigadka-gallery/internal/service/preview"
)

// MockGalleryService is a mock implementation of GalleryService
type MockGalleryService struct {
	mock.Mock
}

func (m *MockGalleryService) List(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockGalleryService) SelectFile(file gallery.UploadedFile) error {
	args := m.Called(file)
	return args.Error(0)
}

func (m *MockGalleryService) SetName(name string) {
	m.Called(name)
}

func (m *MockGalleryService) Submit(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockGalleryService) DeleteImage(ctx context.Context, id string) {
	m.Called(ctx, id)
}

func (m *MockGalleryService) Snapshot() gallery.State {
	args := m.Called()
	return args.Get(0).(gallery.State)
}

func (m *MockGalleryService) Subscribe() (<-chan gallery.State, func()) {
	args := m.Called()
	return args.Get(0).(<-chan gallery.State), args.Get(1).(func())
}

func newTestRouter(service GalleryService, previews PreviewSource) chi.Router {
	handler := NewHandler(service, previews, 1<<20, zap.NewNop())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func createSelectRequest(t *testing.T, filename string, content []byte) *http.Request {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/select", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req
}

func TestHandler_Index(t *testing.T) {
	t.Run("empty gallery", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("Snapshot").Return(gallery.State{
			Preview: gallery.DefaultPlaceholderURL,
			Images:  []client.Image{},
		})

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rr.Body.String(), "No images uploaded")
		assert.NotContains(t, rr.Body.String(), `class="delete"`)
	})

	t.Run("one image", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("Snapshot").Return(gallery.State{
			Loading:      true,
			ErrorMessage: "name required",
			Preview:      "https://x/y.jpg",
			Images:       []client.Image{{ID: "1", URL: "a", Name: "A"}},
		})

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		body := rr.Body.String()
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, body, "No images uploaded")
		assert.Contains(t, body, "<p>A</p>")
		assert.Contains(t, body, `action="/images/1/delete"`)
		assert.Equal(t, 1, strings.Count(body, `class="delete"`))
		assert.Contains(t, body, `class="loading"`)
		assert.Contains(t, body, "name required")
		assert.Contains(t, body, `src="https://x/y.jpg"`)
	})
}

func TestHandler_GetState(t *testing.T) {
	service := new(MockGalleryService)
	service.On("Snapshot").Return(gallery.State{
		Preview: "p",
		Images:  []client.Image{{ID: "7", URL: "u", Name: "n"}},
	})

	rr := httptest.NewRecorder()
	newTestRouter(service, preview.NewStore()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/state", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var state gallery.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, "p", state.Preview)
	require.Len(t, state.Images, 1)
	assert.Equal(t, client.ImageID("7"), state.Images[0].ID)
}

func TestHandler_SelectFile(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("SelectFile", mock.MatchedBy(func(f gallery.UploadedFile) bool {
			return f != nil && f.GetFilename() == "photo.jpg" && f.GetSize() == int64(len("fake image content"))
		})).Return(nil).Once()
		service.On("Snapshot").Return(gallery.State{HasSelection: true})

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, createSelectRequest(t, "photo.jpg", []byte("fake image content")))

		assert.Equal(t, http.StatusOK, rr.Code)
		service.AssertExpectations(t)
	})

	t.Run("invalid extension", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("SelectFile", mock.Anything).Return(gallery.ErrInvalidExtension).Once()
		service.On("Snapshot").Return(gallery.State{ErrorMessage: gallery.ErrInvalidExtension.Message})

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, createSelectRequest(t, "photo.GIF", []byte("gif")))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "jpg, jpeg, png, mp4")
	})

	t.Run("cancelled pick", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("SelectFile", nil).Return(nil).Once()

		body := new(bytes.Buffer)
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("other", "x"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/select", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		service.AssertExpectations(t)
	})

	t.Run("not multipart", func(t *testing.T) {
		service := new(MockGalleryService)

		req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader("file=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		service.AssertNotCalled(t, "SelectFile", mock.Anything)
	})

	t.Run("body over the upload limit", func(t *testing.T) {
		service := new(MockGalleryService)

		// newTestRouter allows 1MB plus the multipart overhead
		content := bytes.Repeat([]byte{0xFF}, 1<<20+multipartOverhead+1)

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, createSelectRequest(t, "huge.png", content))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Contains(t, rr.Body.String(), "File too large")
		service.AssertNotCalled(t, "SelectFile", mock.Anything)
	})
}

func TestHandler_Submit(t *testing.T) {
	t.Run("form post redirects", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("Submit", mock.Anything, "Alice").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(url.Values{"name": {"Alice"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		service.AssertExpectations(t)
	})

	t.Run("validation error as json", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("Submit", mock.Anything, "").Return(gallery.ErrNameRequired).Once()
		service.On("Snapshot").Return(gallery.State{ErrorMessage: "name required"})

		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var state gallery.State
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
		assert.Equal(t, "name required", state.ErrorMessage)
	})

	t.Run("request cancellation does not reach the service", func(t *testing.T) {
		service := new(MockGalleryService)
		service.On("Submit", mock.MatchedBy(func(ctx context.Context) bool {
			return ctx.Done() == nil
		}), "Alice").Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("name=Alice")).WithContext(ctx)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := httptest.NewRecorder()
		newTestRouter(service, preview.NewStore()).ServeHTTP(rr, req)

		service.AssertExpectations(t)
	})
}

func TestHandler_SetName(t *testing.T) {
	service := new(MockGalleryService)
	service.On("SetName", "Ali").Once()
	service.On("Snapshot").Return(gallery.State{Name: "Ali"})

	req := httptest.NewRequest(http.MethodPost, "/name", strings.NewReader("name=Ali"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	rr := httptest.NewRecorder()
	newTestRouter(service, preview.NewStore()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	service.AssertExpectations(t)
}

func TestHandler_DeleteImage(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{name: "form post", method: http.MethodPost, path: "/images/42/delete", status: http.StatusSeeOther},
		{name: "delete verb", method: http.MethodDelete, path: "/images/42", status: http.StatusSeeOther},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := new(MockGalleryService)
			service.On("DeleteImage", mock.Anything, "42").Once()

			rr := httptest.NewRecorder()
			newTestRouter(service, preview.NewStore()).ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, tc.status, rr.Code)
			service.AssertExpectations(t)
		})
	}
}

var deleteActionRe = regexp.MustCompile(`action="(/images/[^"]*/delete)"`)

func TestHandler_DeleteImage_RenderedAction(t *testing.T) {
	tests := []struct {
		name string
		id   client.ImageID
	}{
		{name: "plain", id: "42"},
		{name: "folder", id: "gallery/abc123"},
		{name: "slash", id: "a/b"},
		{name: "question mark", id: "x?y"},
		{name: "space", id: "my photo"},
		{name: "percent", id: "100%"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := new(MockGalleryService)
			service.On("Snapshot").Return(gallery.State{
				Images: []client.Image{{ID: tc.id, URL: "u", Name: "n"}},
			})
			service.On("DeleteImage", mock.Anything, string(tc.id)).Once()

			router := newTestRouter(service, preview.NewStore())

			page := httptest.NewRecorder()
			router.ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, page.Code)

			match := deleteActionRe.FindStringSubmatch(page.Body.String())
			require.Len(t, match, 2, "page should render a delete form")

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, match[1], nil))

			assert.Equal(t, http.StatusSeeOther, rr.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_GetPreview(t *testing.T) {
	store := preview.NewStore()
	previewURL := store.Acquire("image/png", []byte("png bytes"))
	router := newTestRouter(new(MockGalleryService), store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, previewURL, nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "png bytes", rr.Body.String())

	store.Release(previewURL)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, previewURL, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_WebSocket(t *testing.T) {
	service := new(MockGalleryService)

	updates := make(chan gallery.State, 1)
	unsubscribed := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(unsubscribed)
			close(updates)
		})
	}
	updates <- gallery.State{Name: "initial"}

	nameSet := make(chan string, 1)
	service.On("Subscribe").Return((<-chan gallery.State)(updates), unsubscribe).Once()
	service.On("SetName", mock.Anything).Run(func(args mock.Arguments) {
		nameSet <- args.String(0)
	}).Once()

	srv := httptest.NewServer(newTestRouter(service, preview.NewStore()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	var state gallery.State
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, "initial", state.Name)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypeSetName, Name: "Alice"}))
	select {
	case name := <-nameSet:
		assert.Equal(t, "Alice", name)
	case <-time.After(2 * time.Second):
		t.Fatal("SetName was not called")
	}

	updates <- gallery.State{Name: "Alice"}
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, "Alice", state.Name)

	conn.Close()
	select {
	case <-unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection close did not unsubscribe")
	}
}
