package model

import (
	"strconv"
	"strings"
)

// FieldType enumerates the input kinds a quote form can declare.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextArea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeFile        FieldType = "file"
	FieldTypeGroup       FieldType = "group"
)

// Known value formats. Each maps onto a built-in pattern in pkg/wizard.
const (
	FormatPhone    = "phone"
	FormatEmail    = "email"
	FormatZip      = "zip"
	FormatYear     = "year"
	FormatPercent  = "percent"
	FormatCurrency = "currency"
)

// Option is a single choice of a select or multiselect field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field declares one input together with its constraints. Constraints are
// declared once here and evaluated wherever the field is gated.
type Field struct {
	Name           string    `json:"name" yaml:"name"`
	Label          string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type           FieldType `json:"type" yaml:"type"`
	Format         string    `json:"format,omitempty" yaml:"format,omitempty"`
	Required       bool      `json:"required,omitempty" yaml:"required,omitempty"`
	RequiredWhen   string    `json:"requiredWhen,omitempty" yaml:"requiredWhen,omitempty"`
	When           string    `json:"when,omitempty" yaml:"when,omitempty"`
	Pattern        string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	PatternMessage string    `json:"patternMessage,omitempty" yaml:"patternMessage,omitempty"`
	Min            *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max            *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength      int       `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength      int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinItems       int       `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems       int       `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	Options        []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	OptionsFrom    string    `json:"optionsFrom,omitempty" yaml:"optionsFrom,omitempty"`
	Accept         []string  `json:"accept,omitempty" yaml:"accept,omitempty"`
	Multiple       bool      `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Default        any       `json:"default,omitempty" yaml:"default,omitempty"`
	Placeholder    string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help           string    `json:"help,omitempty" yaml:"help,omitempty"`
	Item           []Field   `json:"item,omitempty" yaml:"item,omitempty"`
	ItemLabel      string    `json:"itemLabel,omitempty" yaml:"itemLabel,omitempty"`
}

// DisplayLabel returns the declared label or a humanized field name.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return Humanize(f.Name)
}

// ItemField returns the record field with the given name for group fields.
func (f Field) ItemField(name string) (Field, bool) {
	for _, item := range f.Item {
		if item.Name == name {
			return item, true
		}
	}
	return Field{}, false
}

// HasOption reports whether value is one of the declared choices.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Step is one page of the wizard. Fields lists what the step renders; Validate
// lists the field names that gate advancing past it.
type Step struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Icon     string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Validate []string `json:"validate,omitempty" yaml:"validate,omitempty"`
	Fields   []Field  `json:"fields" yaml:"fields"`
}

// CheckKind enumerates cross-field checks.
type CheckKind string

const (
	// CheckSumEquals requires the numeric sum of Fields to equal Value.
	CheckSumEquals CheckKind = "sumEquals"
)

// Check is a cross-field rule. Step selects the step that runs it; when nil
// the check runs on the final step, i.e. at submission time.
type Check struct {
	Kind    CheckKind `json:"kind" yaml:"kind"`
	Fields  []string  `json:"fields" yaml:"fields"`
	Value   float64   `json:"value" yaml:"value"`
	Target  string    `json:"target,omitempty" yaml:"target,omitempty"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
	When    string    `json:"when,omitempty" yaml:"when,omitempty"`
	Step    *int      `json:"step,omitempty" yaml:"step,omitempty"`
}

// ResponseMode describes what the backend returns on success.
type ResponseMode string

const (
	ResponseReference       ResponseMode = "reference"
	ResponseAcknowledgement ResponseMode = "acknowledgement"
)

// Payload configures the JSON projection of the form state.
type Payload struct {
	Discriminator string              `json:"discriminator,omitempty" yaml:"discriminator,omitempty"`
	Value         string              `json:"value,omitempty" yaml:"value,omitempty"`
	Rename        map[string]string   `json:"rename,omitempty" yaml:"rename,omitempty"`
	Nest          map[string][]string `json:"nest,omitempty" yaml:"nest,omitempty"`
	Omit          []string            `json:"omit,omitempty" yaml:"omit,omitempty"`
}

// Form is a complete quote-request wizard definition.
type Form struct {
	ID             string       `json:"id" yaml:"id"`
	Title          string       `json:"title" yaml:"title"`
	Description    string       `json:"description,omitempty" yaml:"description,omitempty"`
	InsuranceType  string       `json:"insuranceType" yaml:"insuranceType"`
	Route          string       `json:"route" yaml:"route"`
	Response       ResponseMode `json:"response,omitempty" yaml:"response,omitempty"`
	SuccessMessage string       `json:"successMessage,omitempty" yaml:"successMessage,omitempty"`
	Steps          []Step       `json:"steps" yaml:"steps"`
	Checks         []Check      `json:"checks,omitempty" yaml:"checks,omitempty"`
	Payload        Payload      `json:"payload,omitempty" yaml:"payload,omitempty"`
	Source         string       `json:"-" yaml:"-"`
}

// LastStep returns the index of the final step, or -1 for an empty form.
func (f Form) LastStep() int {
	return len(f.Steps) - 1
}

// Fields returns every top-level field in step order.
func (f Form) Fields() []Field {
	var out []Field
	for _, step := range f.Steps {
		out = append(out, step.Fields...)
	}
	return out
}

// Field returns the top-level field with the given name and the index of the
// step that renders it.
func (f Form) Field(name string) (Field, int, bool) {
	for idx, step := range f.Steps {
		for _, field := range step.Fields {
			if field.Name == name {
				return field, idx, true
			}
		}
	}
	return Field{}, -1, false
}

// Lookup resolves a dotted value path (`drivers.0.licenseNumber`) to its
// field declaration. Numeric segments index into group records.
func (f Form) Lookup(path string) (Field, bool) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	if len(segments) == 0 || segments[0] == "" {
		return Field{}, false
	}
	field, _, ok := f.Field(segments[0])
	if !ok {
		return Field{}, false
	}
	for _, segment := range segments[1:] {
		if _, err := strconv.Atoi(segment); err == nil {
			if field.Type != FieldTypeGroup {
				return Field{}, false
			}
			continue
		}
		child, ok := field.ItemField(segment)
		if !ok {
			return Field{}, false
		}
		field = child
	}
	return field, true
}

// CheckStep resolves the step index a check runs on.
func (f Form) CheckStep(check Check) int {
	if check.Step != nil {
		return *check.Step
	}
	return f.LastStep()
}

// Mode returns the configured response mode, defaulting to ResponseReference.
func (f Form) Mode() ResponseMode {
	if f.Response == "" {
		return ResponseReference
	}
	return f.Response
}
