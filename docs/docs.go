// Package docs holds the swagger document served at /swagger/doc.json.
// Keep it in step with the @Router annotations in internal/handler/gallery.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/images/{id}": {
            "delete": {
                "description": "Deletes the image and refreshes the gallery",
                "produces": ["application/json"],
                "tags": ["gallery"],
                "summary": "Delete an image",
                "parameters": [
                    {"type": "string", "description": "Image ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gallery.State"}},
                    "303": {"description": "Redirect to the gallery page", "schema": {"type": "string"}}
                }
            }
        },
        "/images/{id}/delete": {
            "post": {
                "description": "Deletes the image and refreshes the gallery",
                "produces": ["application/json"],
                "tags": ["gallery"],
                "summary": "Delete an image",
                "parameters": [
                    {"type": "string", "description": "Image ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gallery.State"}},
                    "303": {"description": "Redirect to the gallery page", "schema": {"type": "string"}}
                }
            }
        },
        "/name": {
            "post": {
                "description": "Stores the name typed into the form",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["gallery"],
                "summary": "Update the name field",
                "parameters": [
                    {"type": "string", "description": "Display name", "name": "name", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gallery.State"}}
                }
            }
        },
        "/preview/{id}": {
            "get": {
                "description": "Serves a selected file before it is uploaded",
                "produces": ["application/octet-stream"],
                "tags": ["gallery"],
                "summary": "Local preview",
                "parameters": [
                    {"type": "string", "description": "Preview ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Preview not found", "schema": {"type": "string"}}
                }
            }
        },
        "/select": {
            "post": {
                "description": "Validates the picked file and shows it as the local preview",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["gallery"],
                "summary": "Select a file",
                "parameters": [
                    {"type": "file", "description": "Picked file (jpg, jpeg, png, mp4)", "name": "file", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gallery.State"}},
                    "303": {"description": "Redirect to the gallery page", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gallery.State"}},
                    "413": {"description": "File too large", "schema": {"type": "string"}}
                }
            }
        },
        "/state": {
            "get": {
                "description": "Returns the state the gallery page renders",
                "produces": ["application/json"],
                "tags": ["gallery"],
                "summary": "Current gallery state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gallery.State"}}
                }
            }
        },
        "/submit": {
            "post": {
                "description": "Uploads the selected file under the given name and refreshes the gallery",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["gallery"],
                "summary": "Upload the selected file",
                "parameters": [
                    {"type": "string", "description": "Display name", "name": "name", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gallery.State"}},
                    "303": {"description": "Redirect to the gallery page", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gallery.State"}}
                }
            }
        }
    },
    "definitions": {
        "gallery.Image": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "gallery.State": {
            "type": "object",
            "properties": {
                "error_message": {"type": "string"},
                "has_selection": {"type": "boolean"},
                "images": {"type": "array", "items": {"$ref": "#/definitions/gallery.Image"}},
                "loading": {"type": "boolean"},
                "name": {"type": "string"},
                "preview": {"type": "string"},
                "selected_filename": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Brigadka Gallery",
	Description:      "Browser view of the image gallery API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
