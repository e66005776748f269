package submit

import (
	"encoding/base64"
	"fmt"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// DecodePayload reverses BuildPayload: it lifts nested blocks, restores
// renamed keys to field names and decodes embedded attachments, producing
// values keyed the way the wizard state keys them. Keys the form does not
// declare are ignored. A discriminator that disagrees with the form's tag is
// an error.
func DecodePayload(form model.Form, body map[string]any) (map[string]any, error) {
	discriminator := form.Payload.Discriminator
	if discriminator == "" {
		discriminator = "insuranceType"
	}
	tag := form.Payload.Value
	if tag == "" {
		tag = form.InsuranceType
	}
	if raw, ok := body[discriminator]; ok && tag != "" && fmt.Sprint(raw) != tag {
		return nil, fmt.Errorf("submit: %s is %v, expected %s", discriminator, raw, tag)
	}

	nestedUnder := make(map[string]string)
	for parent, names := range form.Payload.Nest {
		for _, name := range names {
			nestedUnder[name] = parent
		}
	}

	out := make(map[string]any)
	for _, field := range form.Fields() {
		source := body
		if parent, nested := nestedUnder[field.Name]; nested {
			source, _ = body[parent].(map[string]any)
		}
		raw, ok := source[payloadKey(form, field.Name)]
		if !ok {
			continue
		}
		value, err := decodeValue(field, raw)
		if err != nil {
			return nil, fmt.Errorf("submit: %s: %w", field.Name, err)
		}
		out[field.Name] = value
	}
	return out, nil
}

func decodeValue(field model.Field, raw any) (any, error) {
	switch field.Type {
	case model.FieldTypeFile:
		return decodeFiles(raw)
	case model.FieldTypeGroup:
		if raw == nil {
			return []any{}, nil
		}
		records, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected a list, got %T", raw)
		}
		out := make([]any, 0, len(records))
		for idx, item := range records {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d: expected an object, got %T", idx, item)
			}
			decoded := make(map[string]any, len(field.Item))
			for _, itemField := range field.Item {
				v, ok := record[itemField.Name]
				if !ok {
					continue
				}
				dv, err := decodeValue(itemField, v)
				if err != nil {
					return nil, fmt.Errorf("record %d: %s: %w", idx, itemField.Name, err)
				}
				decoded[itemField.Name] = dv
			}
			out = append(out, decoded)
		}
		return out, nil
	default:
		return raw, nil
	}
}

func decodeFiles(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return decodeAttachment(v)
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected an attachment object, got %T", item)
			}
			a, err := decodeAttachment(obj)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an attachment, got %T", raw)
	}
}

func decodeAttachment(obj map[string]any) (model.Attachment, error) {
	a := model.Attachment{}
	a.Name, _ = obj["fileName"].(string)
	a.ContentType, _ = obj["contentType"].(string)
	if encoded, _ := obj["data"].(string); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return model.Attachment{}, fmt.Errorf("attachment %q: %w", a.Name, err)
		}
		a.Data = data
	}
	a.Size = int64(len(a.Data))
	return a, nil
}
