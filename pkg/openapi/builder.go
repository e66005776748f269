package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

const (
	DefaultTitle   = "Quote Request API"
	DefaultVersion = "1.0.0"

	QuotePath   = "/api/quotes/{reference}"
	FormsPath   = "/api/forms"
	FormPath    = "/api/forms/{id}"
	QuotesTag   = "quotes"
	CatalogTag  = "forms"
	openapiSpec = "3.0.3"
)

// Option customises the generated document.
type Option func(*builder)

// WithTitle overrides the info title.
func WithTitle(title string) Option {
	return func(b *builder) {
		if title != "" {
			b.title = title
		}
	}
}

// WithVersion overrides the info version.
func WithVersion(version string) Option {
	return func(b *builder) {
		if version != "" {
			b.version = version
		}
	}
}

// WithServerURL adds a server entry.
func WithServerURL(url string) Option {
	return func(b *builder) {
		if url != "" {
			b.servers = append(b.servers, url)
		}
	}
}

type builder struct {
	title   string
	version string
	servers []string
}

// Build assembles and validates the contract for forms.
func Build(ctx context.Context, forms []model.Form, opts ...Option) (*openapi3.T, error) {
	b := &builder{title: DefaultTitle, version: DefaultVersion}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	doc := &openapi3.T{
		OpenAPI: openapiSpec,
		Info: &openapi3.Info{
			Title:   b.title,
			Version: b.version,
		},
		Paths: openapi3.NewPaths(),
	}
	for _, url := range b.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	for _, form := range forms {
		if form.Route == "" {
			return nil, fmt.Errorf("openapi: form %s has no route", form.ID)
		}
		if existing := doc.Paths.Value(form.Route); existing != nil {
			return nil, fmt.Errorf("openapi: route %s declared by more than one form", form.Route)
		}
		doc.Paths.Set(form.Route, &openapi3.PathItem{Post: submitOperation(form)})
	}

	doc.Paths.Set(QuotePath, &openapi3.PathItem{Get: lookupOperation()})
	doc.Paths.Set(FormsPath, &openapi3.PathItem{Get: catalogOperation()})
	doc.Paths.Set(FormPath, &openapi3.PathItem{Get: definitionOperation()})

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

// Marshal renders the document as indented JSON.
func Marshal(doc *openapi3.T) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("openapi: document is nil")
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal: %w", err)
	}
	return raw, nil
}

func submitOperation(form model.Form) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "submit-" + form.ID
	op.Summary = form.Title
	op.Description = form.Description
	op.Tags = []string{QuotesTag}
	op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchema(RequestSchema(form)),
	}

	success := openapi3.NewResponse().WithDescription("Quote request received")
	if form.Mode() == model.ResponseReference {
		success = success.WithJSONSchema(referenceSchema())
	} else {
		success = success.WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("message", openapi3.NewStringSchema()))
	}

	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusCreated, &openapi3.ResponseRef{Value: success}),
		openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{Value: errorResponse("Malformed request body")}),
		openapi3.WithStatus(http.StatusUnprocessableEntity, &openapi3.ResponseRef{Value: errorResponse("Validation failed")}),
	)
	return op
}

func lookupOperation() *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "get-quote"
	op.Summary = "Look up a quote request by reference number"
	op.Tags = []string{QuotesTag}
	op.Parameters = openapi3.Parameters{
		{Value: openapi3.NewPathParameter("reference").WithSchema(openapi3.NewStringSchema())},
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Stored quote request").WithJSONSchema(quoteSchema()),
		}),
		openapi3.WithStatus(http.StatusNotFound, &openapi3.ResponseRef{Value: errorResponse("Unknown reference")}),
	)
	return op
}

func catalogOperation() *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "list-forms"
	op.Summary = "List the available quote forms"
	op.Tags = []string{CatalogTag}
	entry := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("insuranceType", openapi3.NewStringSchema()).
		WithProperty("route", openapi3.NewStringSchema()).
		WithProperty("response", openapi3.NewStringSchema().WithEnum(
			string(model.ResponseReference), string(model.ResponseAcknowledgement)))
	body := openapi3.NewObjectSchema().WithProperty("data", openapi3.NewArraySchema().WithItems(entry))
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Form catalogue").WithJSONSchema(body),
		}),
	)
	return op
}

func definitionOperation() *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "get-form"
	op.Summary = "Fetch a form definition"
	op.Tags = []string{CatalogTag}
	op.Parameters = openapi3.Parameters{
		{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())},
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Form definition").WithJSONSchema(openapi3.NewObjectSchema()),
		}),
		openapi3.WithStatus(http.StatusNotFound, &openapi3.ResponseRef{Value: errorResponse("Unknown form")}),
	)
	return op
}

func referenceSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema().
		WithProperty("referenceNumber", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema())
	schema.Required = []string{"referenceNumber"}
	return schema
}

func quoteSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema().
		WithProperty("referenceNumber", openapi3.NewStringSchema()).
		WithProperty("formId", openapi3.NewStringSchema()).
		WithProperty("insuranceType", openapi3.NewStringSchema()).
		WithProperty("createdAt", openapi3.NewDateTimeSchema()).
		WithProperty("payload", openapi3.NewObjectSchema())
	schema.Required = []string{"referenceNumber", "formId", "createdAt"}
	return schema
}

func errorResponse(description string) *openapi3.Response {
	messages := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	body := openapi3.NewObjectSchema().
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("errors", openapi3.NewObjectSchema().WithAdditionalProperties(messages))
	return openapi3.NewResponse().WithDescription(description).WithJSONSchema(body)
}
