package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Endpoint paths of the gallery API
const (
	PathImages      = "/api/images"
	PathUploadImage = "/api/uploadImage"
	PathImage       = "/api/image/"
)

// Client calls the gallery API. It only injects the base URL: no retries,
// no auth, no timeout beyond what the underlying http.Client has.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the API located at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL the client points at
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListImages fetches every uploaded image
func (c *Client) ListImages(ctx context.Context) ([]Image, error) {
	body, err := c.do(ctx, "list images", http.MethodGet, PathImages, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeImageList(body)
}

// UploadImage sends the file and its display name as multipart/form-data
func (c *Client) UploadImage(ctx context.Context, name string, file Upload) (*UploadResponse, error) {
	payload := new(bytes.Buffer)
	writer := multipart.NewWriter(payload)

	part, err := writer.CreatePart(filePartHeader(file))
	if err != nil {
		return nil, errors.Wrap(err, "create file part")
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return nil, errors.Wrap(err, "copy file part")
	}
	if err := writer.WriteField("name", name); err != nil {
		return nil, errors.Wrap(err, "write name field")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart writer")
	}

	body, err := c.do(ctx, "upload image", http.MethodPost, PathUploadImage, payload, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var resp UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode upload response")
	}
	return &resp, nil
}

// DeleteImage removes the image with the given id; any 2xx is success
func (c *Client) DeleteImage(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete image", http.MethodDelete, PathImage+url.PathEscape(id), nil, "")
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: build request", op)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read response", op)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: errorBody(data)}
	}
	return data, nil
}

func decodeImageList(body []byte) ([]Image, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []Image{}, nil
	}

	switch trimmed[0] {
	case '[':
		var images []Image
		if err := json.Unmarshal(trimmed, &images); err != nil {
			return nil, errors.Wrap(err, "decode image list")
		}
		if images == nil {
			images = []Image{}
		}
		return images, nil
	case '{':
		var envelope imageListEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, errors.Wrap(err, "decode image list object")
		}
		if envelope.Images == nil {
			return []Image{}, nil
		}
		return envelope.Images, nil
	default:
		// Anything that is not a list renders as an empty gallery.
		return []Image{}, nil
	}
}

// errorBody returns the response text, unquoting a bare JSON string.
func errorBody(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 1 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(data)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(file Upload) textproto.MIMEHeader {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		`form-data; name="file"; filename="`+quoteEscaper.Replace(file.Filename)+`"`)
	h.Set("Content-Type", contentType)
	return h
}
