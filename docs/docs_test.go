package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocument(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Swagger string                     `json:"swagger"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, "2.0", parsed.Swagger)
	for _, path := range []string{
		"/state", "/select", "/name", "/submit",
		"/images/{id}", "/images/{id}/delete", "/preview/{id}",
	} {
		assert.Contains(t, parsed.Paths, path)
	}
}
