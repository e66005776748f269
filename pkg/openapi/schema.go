package openapi

import (
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

// RequestSchema describes the JSON body posted for form, applying the same
// omissions, renames and nesting as submit.BuildPayload. Fields required
// unconditionally are listed as required; conditional ones are optional.
func RequestSchema(form model.Form) *openapi3.Schema {
	omit := make(map[string]struct{}, len(form.Payload.Omit))
	for _, name := range form.Payload.Omit {
		omit[name] = struct{}{}
	}
	nestedUnder := make(map[string]string)
	for parent, names := range form.Payload.Nest {
		for _, name := range names {
			nestedUnder[name] = parent
		}
	}

	root := openapi3.NewObjectSchema()
	nested := make(map[string]*openapi3.Schema)
	for _, field := range form.Fields() {
		if _, skip := omit[field.Name]; skip {
			continue
		}
		key := field.Name
		if renamed, ok := form.Payload.Rename[field.Name]; ok && renamed != "" {
			key = renamed
		}
		target := root
		if parent, ok := nestedUnder[field.Name]; ok {
			if nested[parent] == nil {
				nested[parent] = openapi3.NewObjectSchema()
			}
			target = nested[parent]
		}
		target.WithProperty(key, FieldSchema(field))
		if unconditionallyRequired(field) {
			target.Required = append(target.Required, key)
		}
	}

	parents := make([]string, 0, len(nested))
	for parent := range nested {
		parents = append(parents, parent)
	}
	sort.Strings(parents)
	for _, parent := range parents {
		root.WithProperty(parent, nested[parent])
		if len(nested[parent].Required) > 0 {
			root.Required = append(root.Required, parent)
		}
	}

	discriminator := form.Payload.Discriminator
	if discriminator == "" {
		discriminator = "insuranceType"
	}
	tag := form.Payload.Value
	if tag == "" {
		tag = form.InsuranceType
	}
	if tag != "" {
		root.WithProperty(discriminator, openapi3.NewStringSchema().WithEnum(tag))
		root.Required = append(root.Required, discriminator)
	}
	sort.Strings(root.Required)
	return root
}

// FieldSchema maps one field declaration onto a JSON schema.
func FieldSchema(field model.Field) *openapi3.Schema {
	var schema *openapi3.Schema
	switch field.Type {
	case model.FieldTypeNumber:
		schema = openapi3.NewFloat64Schema()
		if field.Min != nil {
			schema.WithMin(*field.Min)
		}
		if field.Max != nil {
			schema.WithMax(*field.Max)
		}
		schema.Nullable = !unconditionallyRequired(field)
	case model.FieldTypeBoolean:
		schema = openapi3.NewBoolSchema()
	case model.FieldTypeDate:
		schema = openapi3.NewStringSchema().WithFormat("date")
	case model.FieldTypeSelect:
		schema = openapi3.NewStringSchema()
		if enum := optionValues(field); len(enum) > 0 && unconditionallyRequired(field) {
			schema.WithEnum(enum...)
		}
	case model.FieldTypeMultiSelect:
		items := openapi3.NewStringSchema()
		if enum := optionValues(field); len(enum) > 0 {
			items.WithEnum(enum...)
		}
		schema = openapi3.NewArraySchema().WithItems(items)
		if field.MinItems > 0 && field.When == "" {
			schema.WithMinItems(int64(field.MinItems))
		}
		if field.MaxItems > 0 {
			schema.WithMaxItems(int64(field.MaxItems))
		}
	case model.FieldTypeFile:
		schema = attachmentSchema()
		if field.Multiple {
			schema = openapi3.NewArraySchema().WithItems(schema)
			if field.MaxItems > 0 {
				schema.WithMaxItems(int64(field.MaxItems))
			}
		} else {
			schema.Nullable = true
		}
	case model.FieldTypeGroup:
		record := openapi3.NewObjectSchema()
		for _, item := range field.Item {
			record.WithProperty(item.Name, FieldSchema(item))
			if unconditionallyRequired(item) {
				record.Required = append(record.Required, item.Name)
			}
		}
		schema = openapi3.NewArraySchema().WithItems(record)
		if field.MinItems > 0 && field.When == "" {
			schema.WithMinItems(int64(field.MinItems))
		}
		if field.MaxItems > 0 {
			schema.WithMaxItems(int64(field.MaxItems))
		}
	default:
		schema = openapi3.NewStringSchema()
		if field.MaxLength > 0 {
			schema.WithMaxLength(int64(field.MaxLength))
		}
		if field.Format == model.FormatEmail {
			schema.WithFormat("email")
		}
		if pattern := textPattern(field); pattern != "" && unconditionallyRequired(field) {
			schema.WithPattern(pattern)
		}
	}
	schema.Title = field.DisplayLabel()
	schema.Description = field.Help
	return schema
}

func unconditionallyRequired(field model.Field) bool {
	return field.Required && field.When == "" && field.RequiredWhen == ""
}

func optionValues(field model.Field) []any {
	if len(field.Options) == 0 {
		return nil
	}
	out := make([]any, 0, len(field.Options))
	for _, opt := range field.Options {
		out = append(out, opt.Value)
	}
	return out
}

func attachmentSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema().
		WithProperty("fileName", openapi3.NewStringSchema()).
		WithProperty("contentType", openapi3.NewStringSchema()).
		WithProperty("size", openapi3.NewInt64Schema()).
		WithProperty("data", openapi3.NewBytesSchema())
	schema.Required = []string{"fileName", "data"}
	return schema
}

func textPattern(field model.Field) string {
	if field.Pattern != "" {
		return field.Pattern
	}
	return wizard.FormatPattern(field.Format)
}
