// Package api embeds the OpenAPI document for football-api.
package api

import _ "embed"

// OpenAPISpec contains the raw OpenAPI 3.0 YAML specification.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
