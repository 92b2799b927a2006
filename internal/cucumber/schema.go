package cucumber

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// resultsSchema covers the parts of the cucumber JSON report the converter
// relies on. Unknown fields are allowed since every runner adds its own.
const resultsSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"$ref": "#/definitions/feature"
	},
	"definitions": {
		"tag": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string", "minLength": 1}
			}
		},
		"result": {
			"type": "object",
			"required": ["status"],
			"properties": {
				"status": {"type": "string"},
				"duration": {"type": "number"},
				"error_message": {"type": "string"}
			}
		},
		"hook": {
			"type": "object",
			"properties": {
				"match": {"type": "object"},
				"result": {"$ref": "#/definitions/result"}
			}
		},
		"feature": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"uri": {"type": "string"},
				"name": {"type": "string"},
				"description": {"type": "string"},
				"line": {"type": "integer"},
				"tags": {
					"type": "array",
					"items": {"$ref": "#/definitions/tag"}
				},
				"elements": {
					"type": "array",
					"items": {"$ref": "#/definitions/element"}
				}
			}
		},
		"element": {
			"type": "object",
			"required": ["keyword"],
			"properties": {
				"type": {"type": "string"},
				"keyword": {"type": "string"},
				"name": {"type": "string"},
				"description": {"type": "string"},
				"line": {"type": "integer"},
				"tags": {
					"type": "array",
					"items": {"$ref": "#/definitions/tag"}
				},
				"before": {
					"type": "array",
					"items": {"$ref": "#/definitions/hook"}
				},
				"after": {
					"type": "array",
					"items": {"$ref": "#/definitions/hook"}
				},
				"steps": {
					"type": "array",
					"items": {"$ref": "#/definitions/step"}
				}
			}
		},
		"step": {
			"type": "object",
			"required": ["keyword", "name"],
			"properties": {
				"keyword": {"type": "string"},
				"name": {"type": "string"},
				"line": {"type": "integer"},
				"doc_string": {
					"type": "object",
					"properties": {
						"value": {"type": "string"}
					}
				},
				"rows": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["cells"],
						"properties": {
							"cells": {
								"type": "array",
								"items": {"type": "string"}
							}
						}
					}
				},
				"result": {"$ref": "#/definitions/result"}
			}
		}
	}
}`

// Validate checks a cucumber JSON report against the results schema
func Validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(resultsSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate results: %w", err)
	}

	if !result.Valid() {
		var errMsg strings.Builder
		for _, desc := range result.Errors() {
			fmt.Fprintf(&errMsg, "- %s\n", desc)
		}
		return fmt.Errorf("results do not match the cucumber JSON format:\n%s", errMsg.String())
	}

	return nil
}
