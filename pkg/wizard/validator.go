package wizard

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/visibility"
)

var formatPatterns = map[string]struct {
	pattern *regexp.Regexp
	message string
}{
	model.FormatPhone: {regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`), "must be in the format 555-555-5555"},
	model.FormatEmail: {regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`), "must be a valid email address"},
	model.FormatZip:   {regexp.MustCompile(`^\d{5}(-\d{4})?$`), "must be a 5 digit ZIP code"},
	model.FormatYear:  {regexp.MustCompile(`^(18|19|20)\d{2}$`), "must be a four digit year"},
}

// FormatPattern returns the regular expression enforced for a named text
// format, or "" when the format has no fixed shape.
func FormatPattern(format string) string {
	if entry, ok := formatPatterns[format]; ok {
		return entry.pattern.String()
	}
	return ""
}

// Issue is a single validation failure attached to a value path.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating a step or a whole form.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Errors groups issue messages by field path.
func (r Result) Errors() map[string][]string {
	if len(r.Issues) == 0 {
		return nil
	}
	out := make(map[string][]string, len(r.Issues))
	for _, issue := range r.Issues {
		out[issue.Field] = append(out[issue.Field], issue.Message)
	}
	return out
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithVisibleRequired additionally enforces `required` on every visible field
// of a step, not only the fields named in the step's gating list.
func WithVisibleRequired() ValidatorOption {
	return func(v *Validator) {
		v.visibleRequired = true
	}
}

// Validator checks gated fields against their declared constraints.
type Validator struct {
	form            model.Form
	disclosure      *Disclosure
	evaluator       visibility.Evaluator
	patterns        map[string]*regexp.Regexp
	visibleRequired bool
}

// NewValidator compiles the custom patterns declared by form.
func NewValidator(form model.Form, evaluator visibility.Evaluator, opts ...ValidatorOption) (*Validator, error) {
	v := &Validator{
		form:       form,
		disclosure: NewDisclosure(form, evaluator),
		evaluator:  evaluator,
		patterns:   make(map[string]*regexp.Regexp),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	var compile func(fields []model.Field) error
	compile = func(fields []model.Field) error {
		for _, field := range fields {
			if field.Pattern != "" {
				re, err := regexp.Compile(field.Pattern)
				if err != nil {
					return fmt.Errorf("wizard: field %s: invalid pattern: %w", field.Name, err)
				}
				v.patterns[field.Pattern] = re
			}
			if err := compile(field.Item); err != nil {
				return err
			}
		}
		return nil
	}
	if err := compile(form.Fields()); err != nil {
		return nil, err
	}
	return v, nil
}

// Gating returns the field names that gate step, in declaration order.
func (v *Validator) Gating(step int) []string {
	if step < 0 || step >= len(v.form.Steps) {
		return nil
	}
	return append([]string(nil), v.form.Steps[step].Validate...)
}

// ValidateStep validates the gating fields of step plus the cross-field checks
// bound to it. Fields outside the gating list are ignored.
func (v *Validator) ValidateStep(step int, values map[string]any) Result {
	var issues []Issue
	seen := make(map[string]struct{})
	for _, name := range v.Gating(step) {
		seen[name] = struct{}{}
		issues = append(issues, v.validateTopLevel(name, values, true)...)
	}
	if v.visibleRequired && step >= 0 && step < len(v.form.Steps) {
		for _, field := range v.form.Steps[step].Fields {
			if _, ok := seen[field.Name]; ok || !field.Required {
				continue
			}
			issues = append(issues, v.validateTopLevel(field.Name, values, false)...)
		}
	}
	for _, check := range v.form.Checks {
		if v.form.CheckStep(check) != step {
			continue
		}
		if issue, failed := v.runCheck(check, values); failed {
			issues = append(issues, issue)
		}
	}
	return Result{Valid: len(issues) == 0, Issues: issues}
}

// ValidateAll validates every step in order. The backend uses it to re-check a
// submitted payload.
func (v *Validator) ValidateAll(values map[string]any) Result {
	var issues []Issue
	for idx := range v.form.Steps {
		issues = append(issues, v.ValidateStep(idx, values).Issues...)
	}
	return Result{Valid: len(issues) == 0, Issues: issues}
}

// ValidateValue checks a single value against field without consulting
// visibility. scope is the enclosing record for group items and may be nil.
func (v *Validator) ValidateValue(field model.Field, path string, value any, values, scope map[string]any) []string {
	required := field.Required
	if !required && strings.TrimSpace(field.RequiredWhen) != "" {
		ok, err := v.evaluator.Eval(path, field.RequiredWhen, visibility.Context{Values: values, Scope: scope})
		if err != nil {
			return []string{err.Error()}
		}
		required = ok
	}

	if isEmpty(value) {
		if required {
			if field.Type == model.FieldTypeGroup {
				return []string{fmt.Sprintf("add at least %d", max(field.MinItems, 1))}
			}
			return []string{"is required"}
		}
		counted := field.Type == model.FieldTypeGroup || field.Type == model.FieldTypeMultiSelect
		if !counted || field.MinItems == 0 {
			return nil
		}
	}
	if field.Type == model.FieldTypeBoolean && required {
		if b, _ := value.(bool); !b {
			return []string{"must be confirmed"}
		}
	}

	switch field.Type {
	case model.FieldTypeNumber:
		return v.checkNumber(field, value)
	case model.FieldTypeDate:
		if _, err := time.Parse("2006-01-02", stringValue(value)); err != nil {
			return []string{"must be a date (YYYY-MM-DD)"}
		}
		return nil
	case model.FieldTypeSelect:
		if len(field.Options) > 0 && !field.HasOption(stringValue(value)) {
			return []string{"is not a valid choice"}
		}
		return nil
	case model.FieldTypeMultiSelect:
		return checkSelections(field, value)
	case model.FieldTypeFile:
		return checkAttachments(field, value)
	case model.FieldTypeGroup:
		items, _ := value.([]any)
		return checkCount(field, len(items))
	case model.FieldTypeText, model.FieldTypeTextArea:
		return v.checkText(field, stringValue(value))
	}
	return nil
}

func (v *Validator) validateTopLevel(name string, values map[string]any, gated bool) []Issue {
	field, _, ok := v.form.Field(name)
	if !ok {
		return []Issue{{Field: name, Message: "is not a known field"}}
	}
	visible, err := v.disclosure.IsVisible(name, values)
	if err != nil {
		return []Issue{{Field: name, Message: err.Error()}}
	}
	if !visible {
		return nil
	}

	value := values[name]
	var issues []Issue
	if gated {
		for _, msg := range v.ValidateValue(field, name, value, values, nil) {
			issues = append(issues, Issue{Field: name, Message: msg})
		}
	} else if isEmpty(value) {
		issues = append(issues, Issue{Field: name, Message: "is required"})
	}

	if field.Type == model.FieldTypeGroup && gated {
		issues = append(issues, v.validateRecords(field, values)...)
	}
	return issues
}

func (v *Validator) validateRecords(group model.Field, values map[string]any) []Issue {
	records, _ := values[group.Name].([]any)
	var issues []Issue
	for idx, raw := range records {
		record, _ := raw.(map[string]any)
		for _, item := range group.Item {
			path := group.Name + "." + strconv.Itoa(idx) + "." + item.Name
			if strings.TrimSpace(item.When) != "" {
				ok, err := v.evaluator.Eval(path, item.When, visibility.Context{Values: values, Scope: record})
				if err != nil {
					issues = append(issues, Issue{Field: path, Message: err.Error()})
					continue
				}
				if !ok {
					continue
				}
			}
			for _, msg := range v.ValidateValue(item, path, record[item.Name], values, record) {
				issues = append(issues, Issue{Field: path, Message: msg})
			}
		}
	}
	return issues
}

func (v *Validator) runCheck(check model.Check, values map[string]any) (Issue, bool) {
	target := check.Target
	if target == "" && len(check.Fields) > 0 {
		target = check.Fields[0]
	}
	if strings.TrimSpace(check.When) != "" {
		ok, err := v.evaluator.Eval(target, check.When, visibility.Context{Values: values})
		if err != nil {
			return Issue{Field: target, Message: err.Error()}, true
		}
		if !ok {
			return Issue{}, false
		}
	}

	switch check.Kind {
	case model.CheckSumEquals:
		var total float64
		for _, name := range check.Fields {
			raw := stringValue(values[name])
			if strings.TrimSpace(raw) == "" {
				continue
			}
			n, ok := model.ParseNumber(raw)
			if !ok {
				return Issue{Field: name, Message: "must be a number"}, true
			}
			total += n
		}
		if math.Abs(total-check.Value) > 1e-9 {
			msg := check.Message
			if msg == "" {
				msg = fmt.Sprintf("must total %s", strconv.FormatFloat(check.Value, 'f', -1, 64))
			}
			return Issue{Field: target, Message: msg}, true
		}
		return Issue{}, false
	default:
		return Issue{Field: target, Message: fmt.Sprintf("unknown check %q", check.Kind)}, true
	}
}

func (v *Validator) checkText(field model.Field, value string) []string {
	trimmed := strings.TrimSpace(value)
	var out []string
	if field.MinLength > 0 && len([]rune(trimmed)) < field.MinLength {
		out = append(out, fmt.Sprintf("must be at least %d characters", field.MinLength))
	}
	if field.MaxLength > 0 && len([]rune(trimmed)) > field.MaxLength {
		out = append(out, fmt.Sprintf("must be at most %d characters", field.MaxLength))
	}
	if format, ok := formatPatterns[field.Format]; ok && !format.pattern.MatchString(trimmed) {
		out = append(out, format.message)
	}
	if field.Format == model.FormatPercent || field.Format == model.FormatCurrency {
		out = append(out, v.checkNumber(field, trimmed)...)
	}
	if re, ok := v.patterns[field.Pattern]; ok && !re.MatchString(trimmed) {
		msg := field.PatternMessage
		if msg == "" {
			msg = "has an invalid format"
		}
		out = append(out, msg)
	}
	return out
}

func (v *Validator) checkNumber(field model.Field, value any) []string {
	n, ok := model.ParseNumber(stringValue(value))
	if !ok {
		return []string{"must be a number"}
	}
	minimum, maximum := field.Min, field.Max
	if field.Format == model.FormatPercent {
		if minimum == nil {
			minimum = ptr(0)
		}
		if maximum == nil {
			maximum = ptr(100)
		}
	}
	if field.Format == model.FormatCurrency && minimum == nil {
		minimum = ptr(0)
	}
	if minimum != nil && n < *minimum {
		return []string{fmt.Sprintf("must be at least %s", formatNumber(*minimum))}
	}
	if maximum != nil && n > *maximum {
		return []string{fmt.Sprintf("must be at most %s", formatNumber(*maximum))}
	}
	return nil
}

func checkSelections(field model.Field, value any) []string {
	items, _ := value.([]any)
	if len(field.Options) > 0 {
		for _, item := range items {
			if !field.HasOption(stringValue(item)) {
				return []string{fmt.Sprintf("%q is not a valid choice", stringValue(item))}
			}
		}
	}
	return checkCount(field, len(items))
}

func checkAttachments(field model.Field, value any) []string {
	var files []model.Attachment
	switch v := value.(type) {
	case model.Attachment:
		files = append(files, v)
	case []any:
		for _, item := range v {
			if a, ok := item.(model.Attachment); ok {
				files = append(files, a)
			}
		}
	}
	for _, file := range files {
		if !file.Accepts(field.Accept) {
			return []string{fmt.Sprintf("%s is not an accepted file type (%s)", file.Name, strings.Join(field.Accept, ", "))}
		}
	}
	return nil
}

func checkCount(field model.Field, n int) []string {
	if field.MinItems > 0 && n < field.MinItems {
		return []string{fmt.Sprintf("add at least %d", field.MinItems)}
	}
	if field.MaxItems > 0 && n > field.MaxItems {
		return []string{fmt.Sprintf("allows at most %d", field.MaxItems)}
	}
	return nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case model.Attachment:
		return v.Name == ""
	default:
		return false
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func ptr(v float64) *float64 { return &v }
