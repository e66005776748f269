// Package openapi generates an OpenAPI 3 contract for the quote backend from
// the registered form definitions. Every form contributes one POST operation
// whose request body mirrors the JSON payload built by pkg/submit.
package openapi
