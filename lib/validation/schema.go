package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DatabaseSchema defines the JSON schema for an exported movie database.
var DatabaseSchema = `{
	"type": "object",
	"properties": {
		"date_created": {
			"type": "string",
			"pattern": "^\\d{2}-\\d{2}-\\d{4} \\d{2}:\\d{2}:\\d{2}$"
		},
		"movie_list": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"tmdb_id": {"type": "integer", "minimum": 1},
					"imdb_id": {"type": "string", "minLength": 1},
					"title": {"type": "string"},
					"tagline": {"type": "string"},
					"released": {"type": "boolean"},
					"release_date": {"type": "string", "pattern": "^(\\d{4}-\\d{2}-\\d{2})?$"},
					"certification": {"type": "string", "minLength": 1},
					"runtime": {"type": "integer", "minimum": 0},
					"director": {"type": "array", "items": {"$ref": "#/definitions/person"}},
					"actors": {"type": "array", "maxItems": 5, "items": {"$ref": "#/definitions/person"}},
					"overview": {"type": "string"},
					"genres": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"id": {"type": "integer"},
								"name": {"type": "string"}
							},
							"required": ["id", "name"]
						}
					},
					"backdrop": {"type": "string"},
					"poster": {"type": "string"},
					"trailer": {"type": ["string", "null"]}
				},
				"required": [
					"tmdb_id", "imdb_id", "title", "released", "release_date",
					"certification", "director", "actors", "genres",
					"backdrop", "poster", "trailer"
				]
			}
		}
	},
	"required": ["date_created", "movie_list"],
	"definitions": {
		"person": {
			"type": "object",
			"properties": {
				"id": {"type": "integer"},
				"name": {"type": "string"}
			},
			"required": ["id", "name"]
		}
	}
}`

var databaseSchema = gojsonschema.NewStringLoader(DatabaseSchema)

// ValidateDatabaseExport validates an exported JSON document against DatabaseSchema.
func ValidateDatabaseExport(jsonData []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(databaseSchema, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate JSON schema: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("JSON validation failed: %s", strings.Join(errorMessages, "; "))
	}

	return nil
}
