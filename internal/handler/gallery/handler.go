package gallery

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bulatminnakhmetov/brigadka-gallery/internal/service/gallery"
	"github.com/bulatminnakhmetov/brigadka-gallery/internal/service/preview"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("gallery").
	Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
	ParseFS(templateFS, "templates/*.html"))

// multipartOverhead leaves room for boundaries and the other form fields
const multipartOverhead = 1 << 20

const requestTimeout = 60 * time.Second

// GalleryService is what the handler needs from the gallery service
type GalleryService interface {
	List(ctx context.Context)
	SelectFile(file gallery.UploadedFile) error
	SetName(name string)
	Submit(ctx context.Context, name string) error
	DeleteImage(ctx context.Context, id string)
	Snapshot() gallery.State
	Subscribe() (<-chan gallery.State, func())
}

// PreviewSource serves previews of selected files
type PreviewSource interface {
	Open(id string) (preview.Preview, bool)
}

// Handler serves the gallery page and turns browser actions into service calls
type Handler struct {
	service       GalleryService
	previews      PreviewSource
	maxUploadSize int64
	tmpl          *template.Template
	upgrader      websocket.Upgrader
	log           *zap.Logger
}

// NewHandler creates a new instance of Handler
func NewHandler(service GalleryService, previews PreviewSource, maxUploadSize int64, log *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		previews:      previews,
		maxUploadSize: maxUploadSize,
		tmpl:          pageTemplate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes registers all gallery routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	// the socket lives as long as the page, so no request timeout
	r.Get("/ws", h.HandleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/", h.Index)
		r.Get("/state", h.GetState)
		r.Post("/select", h.SelectFile)
		r.Post("/name", h.SetName)
		r.Post("/submit", h.Submit)
		r.Post("/images/{id}/delete", h.DeleteImage)
		r.Delete("/images/{id}", h.DeleteImage)
		r.Get(preview.PathPrefix+"{id}", h.GetPreview)
	})
}

// Index renders the gallery page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index", h.service.Snapshot()); err != nil {
		h.log.Error("failed to render gallery page", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// @Summary      Current gallery state
// @Description  Returns the state the gallery page renders
// @Tags         gallery
// @Produce      json
// @Success      200  {object}  gallery.State
// @Router       /state [get]
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// @Summary      Select a file
// @Description  Validates the picked file and shows it as the local preview
// @Tags         gallery
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  false  "Picked file (jpg, jpeg, png, mp4)"
// @Success      200   {object}  gallery.State
// @Success      303   {string}  string  "Redirect to the gallery page"
// @Failure      400   {object}  gallery.State
// @Failure      413   {string}  string  "File too large"
// @Router       /select [post]
func (h *Handler) SelectFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Could not parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// the pick was cancelled
		err = h.service.SelectFile(nil)
	case err != nil:
		http.Error(w, "Could not get file", http.StatusBadRequest)
		return
	default:
		file.Close()
		err = h.service.SelectFile(&gallery.FileHeaderWrapper{FileHeader: header})
	}

	h.respond(w, r, err)
}

// @Summary      Update the name field
// @Description  Stores the name typed into the form
// @Tags         gallery
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        name  formData  string  false  "Display name"
// @Success      200   {object}  gallery.State
// @Router       /name [post]
func (h *Handler) SetName(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse form", http.StatusBadRequest)
		return
	}

	h.service.SetName(r.FormValue("name"))
	h.respond(w, r, nil)
}

// @Summary      Upload the selected file
// @Description  Uploads the selected file under the given name and refreshes the gallery
// @Tags         gallery
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        name  formData  string  true  "Display name"
// @Success      200   {object}  gallery.State
// @Success      303   {string}  string  "Redirect to the gallery page"
// @Failure      400   {object}  gallery.State
// @Router       /submit [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse form", http.StatusBadRequest)
		return
	}

	err := h.service.Submit(context.WithoutCancel(r.Context()), r.FormValue("name"))
	h.respond(w, r, err)
}

// @Summary      Delete an image
// @Description  Deletes the image and refreshes the gallery
// @Tags         gallery
// @Produce      json
// @Param        id   path      string  true  "Image ID"
// @Success      200  {object}  gallery.State
// @Success      303  {string}  string  "Redirect to the gallery page"
// @Router       /images/{id}/delete [post]
// @Router       /images/{id} [delete]
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := imageID(r)
	if err != nil || id == "" {
		http.Error(w, "Image ID is required", http.StatusBadRequest)
		return
	}

	h.service.DeleteImage(context.WithoutCancel(r.Context()), id)
	h.respond(w, r, nil)
}

// @Summary      Local preview
// @Description  Serves a selected file before it is uploaded
// @Tags         gallery
// @Produce      octet-stream
// @Param        id   path      string  true  "Preview ID"
// @Success      200  {file}    file
// @Failure      404  {string}  string  "Preview not found"
// @Router       /preview/{id} [get]
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	p, ok := h.previews.Open(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "Preview not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", p.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(p.Data)
}

// imageID returns the decoded {id} segment. chi matches on RawPath when the
// request carries one, so escaped ids like "a%2Fb" arrive still encoded.
func imageID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id, nil
	}
	return url.PathUnescape(id)
}

// respond answers JSON clients with the state and sends form posts back to the page
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusOK
	var validationErr *gallery.ValidationError
	if errors.As(err, &validationErr) {
		status = http.StatusBadRequest
	} else if err != nil {
		h.log.Warn("gallery action failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	if wantsJSON(r) {
		writeJSON(w, status, h.service.Snapshot())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
