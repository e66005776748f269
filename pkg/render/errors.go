package render

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// ErrorMapping splits a backend error payload into field-level and form-level
// messages keyed by the dotted value paths used by the wizard state.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload normalises server error payloads (JSON pointers, bracket
// indexes, request wrappers) into value paths such as `drivers.1.licenseNumber`.
// aliases maps payload keys back to state paths for forms whose payload
// renames or nests fields; it may be nil. Unknown paths become form-level
// errors so messages are not lost.
func MapErrorPayload(form model.Form, payload map[string][]string, aliases map[string]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		mapped, formLevel := mapErrorPath(form, rawPath, aliases)
		if formLevel {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[mapped] = normalizeMessages(append(mapping.Fields[mapped], normalized...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(form model.Form, raw string, aliases map[string]string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", true
	}

	for _, variant := range [][]string{segments, dropWrapperSegments(segments)} {
		if path := resolvePath(form, applyAliases(variant, aliases)); path != "" {
			return path, false
		}
	}
	return "", true
}

// applyAliases rewrites the longest payload-key prefix that has an alias.
func applyAliases(segments []string, aliases map[string]string) []string {
	if len(aliases) == 0 {
		return segments
	}
	for end := len(segments); end > 0; end-- {
		target, ok := aliases[strings.Join(segments[:end], ".")]
		if !ok {
			continue
		}
		out := strings.Split(target, ".")
		return append(out, segments[end:]...)
	}
	return segments
}

// resolvePath returns the longest prefix of segments naming a declared field.
// Record indexes are kept so errors land on the right group entry.
func resolvePath(form model.Form, segments []string) string {
	for end := len(segments); end > 0; end-- {
		if _, err := strconv.Atoi(segments[end-1]); err == nil {
			continue
		}
		candidate := strings.Join(segments[:end], ".")
		if _, ok := form.Lookup(candidate); ok {
			return candidate
		}
	}
	return ""
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$/")
	clean = strings.TrimPrefix(clean, "$.")
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimLeft(clean, "#/.$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data", "attributes":
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
