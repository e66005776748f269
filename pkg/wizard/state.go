package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// State is the form state container: every field's current value keyed by
// field name. Group fields hold a []any of map[string]any records. It is not
// safe for concurrent use; Session serialises access.
type State struct {
	form   model.Form
	values map[string]any
}

// NewState seeds a state with the defaults declared by form.
func NewState(form model.Form) *State {
	s := &State{form: form}
	s.Reset()
	return s
}

// Reset discards every value and restores the declared defaults.
func (s *State) Reset() {
	values := make(map[string]any)
	for _, field := range s.form.Fields() {
		values[field.Name] = defaultValue(field)
	}
	s.values = values
}

// Values returns the live value map. Callers must not retain it across
// mutations; use Snapshot for a stable copy.
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	return s.values
}

// Snapshot returns a deep copy of the current values.
func (s *State) Snapshot() map[string]any {
	if s == nil {
		return nil
	}
	return cloneValues(s.values)
}

// Get resolves a dotted path such as `drivers.0.licenseNumber`.
func (s *State) Get(path string) (any, bool) {
	if s == nil {
		return nil, false
	}
	return getPath(s.values, path)
}

// Set writes a value at a dotted path after normalising it for the field's
// declared type. Unknown fields and missing group records are rejected.
func (s *State) Set(path string, value any) error {
	if s == nil {
		return fmt.Errorf("wizard: state is nil")
	}
	field, ok := s.form.Lookup(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	if field.Type == model.FieldTypeGroup {
		return fmt.Errorf("wizard: %s is a group; use AppendItem/RemoveItem", path)
	}
	normalized, err := normalizeValue(field, value)
	if err != nil {
		return fmt.Errorf("wizard: set %s: %w", path, err)
	}
	return setPath(s.values, path, normalized)
}

// Items returns the records of a group field.
func (s *State) Items(group string) []any {
	items, _ := s.values[group].([]any)
	return items
}

// AppendItem adds a record built from the group's item defaults and returns
// its index.
func (s *State) AppendItem(group string) (int, error) {
	field, _, ok := s.form.Field(group)
	if !ok || field.Type != model.FieldTypeGroup {
		return -1, fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}
	items := s.Items(group)
	if field.MaxItems > 0 && len(items) >= field.MaxItems {
		return -1, fmt.Errorf("wizard: %s allows at most %d entries", group, field.MaxItems)
	}
	items = append(items, newRecord(field))
	s.values[group] = items
	return len(items) - 1, nil
}

// RemoveItem removes the record at index. Later records shift down with their
// own values intact.
func (s *State) RemoveItem(group string, index int) error {
	field, _, ok := s.form.Field(group)
	if !ok || field.Type != model.FieldTypeGroup {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}
	items := s.Items(group)
	if index < 0 || index >= len(items) {
		return fmt.Errorf("wizard: %s has no entry %d", group, index)
	}
	out := make([]any, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	s.values[group] = out
	return nil
}

func defaultValue(field model.Field) any {
	switch field.Type {
	case model.FieldTypeBoolean:
		if b, ok := field.Default.(bool); ok {
			return b
		}
		return false
	case model.FieldTypeMultiSelect:
		out := []any{}
		if defaults, ok := field.Default.([]any); ok {
			out = append(out, defaults...)
		}
		return out
	case model.FieldTypeGroup:
		return []any{}
	case model.FieldTypeFile:
		if field.Multiple {
			return []any{}
		}
		return nil
	default:
		if field.Default == nil {
			return ""
		}
		return fmt.Sprint(field.Default)
	}
}

func newRecord(group model.Field) map[string]any {
	record := make(map[string]any, len(group.Item))
	for _, item := range group.Item {
		record[item.Name] = defaultValue(item)
	}
	return record
}

func normalizeValue(field model.Field, value any) (any, error) {
	switch field.Type {
	case model.FieldTypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case nil:
			return false, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "", "false", "no", "off", "0":
				return false, nil
			case "true", "yes", "on", "1":
				return true, nil
			}
			return nil, fmt.Errorf("invalid boolean %q", v)
		default:
			return nil, fmt.Errorf("invalid boolean %v", value)
		}
	case model.FieldTypeMultiSelect:
		switch v := value.(type) {
		case nil:
			return []any{}, nil
		case []any:
			return append([]any{}, v...), nil
		case []string:
			out := make([]any, 0, len(v))
			for _, item := range v {
				out = append(out, item)
			}
			return out, nil
		case string:
			if strings.TrimSpace(v) == "" {
				return []any{}, nil
			}
			return []any{v}, nil
		default:
			return nil, fmt.Errorf("invalid selection %v", value)
		}
	case model.FieldTypeFile:
		switch v := value.(type) {
		case nil:
			if field.Multiple {
				return []any{}, nil
			}
			return nil, nil
		case model.Attachment:
			if field.Multiple {
				return []any{v}, nil
			}
			return v, nil
		case []model.Attachment:
			if !field.Multiple {
				if len(v) == 0 {
					return nil, nil
				}
				return v[0], nil
			}
			out := make([]any, 0, len(v))
			for _, item := range v {
				out = append(out, item)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("invalid attachment %T", value)
		}
	default:
		switch v := value.(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		default:
			return fmt.Sprint(v), nil
		}
	}
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneValues(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}

func getPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func setPath(root map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	var current any = root
	for i, segment := range segments {
		last := i == len(segments)-1
		switch node := current.(type) {
		case map[string]any:
			if last {
				node[segment] = value
				return nil
			}
			next, ok := node[segment]
			if !ok {
				return fmt.Errorf("wizard: path %q does not exist", path)
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil {
				return fmt.Errorf("wizard: expected numeric segment, got %q", segment)
			}
			if idx < 0 || idx >= len(node) {
				return fmt.Errorf("wizard: index %d out of range in %q", idx, path)
			}
			if last {
				node[idx] = value
				return nil
			}
			current = node[idx]
		default:
			return fmt.Errorf("wizard: unexpected container for segment %q", segment)
		}
	}
	return nil
}
