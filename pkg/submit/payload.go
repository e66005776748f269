package submit

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// ErrInvalidValues is wrapped by the *Error BuildPayload returns when answers
// cannot be encoded, for example a number field holding "three". The error's
// Fields are keyed by state path.
var ErrInvalidValues = errors.New("submit: answers cannot be encoded")

const invalidMessage = "Please correct the highlighted fields."

// BuildPayload projects form state into the JSON body posted to the form's
// route. Omitted keys are dropped, renames and nesting are applied to
// top-level fields, attachments are embedded as base64 and the discriminator
// (insuranceType by default) is set last.
func BuildPayload(form model.Form, values map[string]any) (map[string]any, error) {
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

	out := make(map[string]any, len(values)+1)
	invalid := make(map[string][]string)
	for _, field := range form.Fields() {
		if _, skip := omit[field.Name]; skip {
			continue
		}
		raw, ok := values[field.Name]
		if !ok {
			continue
		}
		value, err := encodeValue(field, field.Name, raw, invalid)
		if err != nil {
			return nil, fmt.Errorf("submit: %s: %w", field.Name, err)
		}

		key := payloadKey(form, field.Name)
		parent, nested := nestedUnder[field.Name]
		if !nested {
			out[key] = value
			continue
		}
		obj, _ := out[parent].(map[string]any)
		if obj == nil {
			obj = make(map[string]any)
			out[parent] = obj
		}
		obj[key] = value
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
		out[discriminator] = tag
	}
	if len(invalid) > 0 {
		return nil, &Error{Message: invalidMessage, Fields: invalid, Err: ErrInvalidValues}
	}
	return out, nil
}

// Aliases maps payload paths back to state field names for every renamed or
// nested field. It is the inverse of the projection done by BuildPayload.
func Aliases(form model.Form) map[string]string {
	aliases := make(map[string]string)
	parents := make([]string, 0, len(form.Payload.Nest))
	for parent := range form.Payload.Nest {
		parents = append(parents, parent)
	}
	sort.Strings(parents)
	for _, parent := range parents {
		for _, name := range form.Payload.Nest[parent] {
			aliases[parent+"."+payloadKey(form, name)] = name
		}
	}
	for name, renamed := range form.Payload.Rename {
		if renamed != name {
			aliases[renamed] = name
		}
	}
	if len(aliases) == 0 {
		return nil
	}
	return aliases
}

// PayloadPath converts a state path such as `contactPhone` or
// `classifications.0.classCode` into the path the same value has in the
// submitted payload.
func PayloadPath(form model.Form, path string) string {
	name, rest, _ := strings.Cut(path, ".")
	key := payloadKey(form, name)
	for parent, names := range form.Payload.Nest {
		for _, nested := range names {
			if nested == name {
				key = parent + "." + key
			}
		}
	}
	if rest != "" {
		return key + "." + rest
	}
	return key
}

func payloadKey(form model.Form, name string) string {
	if renamed, ok := form.Payload.Rename[name]; ok && renamed != "" {
		return renamed
	}
	return name
}

func encodeValue(field model.Field, path string, value any, invalid map[string][]string) (any, error) {
	switch field.Type {
	case model.FieldTypeFile:
		return encodeFiles(value)
	case model.FieldTypeNumber:
		n, ok := encodeNumber(value)
		if !ok {
			invalid[path] = append(invalid[path], "must be a number")
		}
		return n, nil
	case model.FieldTypeGroup:
		records, _ := value.([]any)
		out := make([]any, 0, len(records))
		for idx, raw := range records {
			record, _ := raw.(map[string]any)
			encoded := make(map[string]any, len(record))
			for _, item := range field.Item {
				v, ok := record[item.Name]
				if !ok {
					continue
				}
				ev, err := encodeValue(item, path+"."+strconv.Itoa(idx)+"."+item.Name, v, invalid)
				if err != nil {
					return nil, err
				}
				encoded[item.Name] = ev
			}
			out = append(out, encoded)
		}
		return out, nil
	default:
		return value, nil
	}
}

// encodeNumber turns a number answer into a JSON number. Blank answers encode
// as null.
func encodeNumber(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, true
		}
		n, ok := model.ParseNumber(v)
		if !ok {
			return nil, false
		}
		return n, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		n, ok := model.ParseNumber(fmt.Sprint(v))
		if !ok {
			return nil, false
		}
		return n, true
	}
}

func encodeFiles(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case model.Attachment:
		return encodeAttachment(v), nil
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			a, ok := item.(model.Attachment)
			if !ok {
				return nil, fmt.Errorf("unexpected attachment %T", item)
			}
			out = append(out, encodeAttachment(a))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected attachment %T", value)
	}
}

func encodeAttachment(a model.Attachment) map[string]any {
	return map[string]any{
		"fileName":    a.Name,
		"contentType": a.ContentType,
		"size":        a.Size,
		"data":        base64.StdEncoding.EncodeToString(a.Data),
	}
}
