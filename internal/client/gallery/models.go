package gallery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ImageID is the server-assigned identifier of an image. Servers send it
// either as a JSON number or a JSON string; both are kept as text.
type ImageID string

func (id *ImageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ImageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("image id: %w", err)
	}
	*id = ImageID(n.String())
	return nil
}

func (id ImageID) String() string {
	return string(id)
}

// Image represents an uploaded image as returned by GET /api/images
type Image struct {
	ID   ImageID `json:"id"`
	URL  string  `json:"url"`
	Name string  `json:"name"`
}

// UploadResponse is the body of a successful POST /api/uploadImage
type UploadResponse struct {
	URL string `json:"url"`
}

// imageListEnvelope is the object form some server versions answer with
type imageListEnvelope struct {
	Images []Image `json:"images"`
}

// Upload describes the file part of an upload request
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}
