package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/visibility"
)

// LintError collects every problem found in one form definition.
type LintError struct {
	Form     string
	Source   string
	Problems []string
}

func (e *LintError) Error() string {
	where := e.Form
	if e.Source != "" {
		where = fmt.Sprintf("%s (%s)", e.Form, e.Source)
	}
	return fmt.Sprintf("forms: %s: %s", where, strings.Join(e.Problems, "; "))
}

var knownTypes = map[model.FieldType]struct{}{
	model.FieldTypeText: {}, model.FieldTypeTextArea: {}, model.FieldTypeNumber: {},
	model.FieldTypeDate: {}, model.FieldTypeBoolean: {}, model.FieldTypeSelect: {},
	model.FieldTypeMultiSelect: {}, model.FieldTypeFile: {}, model.FieldTypeGroup: {},
}

var knownFormats = map[string]struct{}{
	"": {}, model.FormatPhone: {}, model.FormatEmail: {}, model.FormatZip: {},
	model.FormatYear: {}, model.FormatPercent: {}, model.FormatCurrency: {},
}

// Lint validates a form definition: unique names, known types and formats,
// gating lists that point at fields rendered on the same step, parsable rules
// and patterns, and payload mappings that reference real fields. It returns a
// *LintError or nil.
func Lint(form model.Form, checker visibility.Checker) error {
	l := &linter{form: form, checker: checker}
	l.run()
	if len(l.problems) == 0 {
		return nil
	}
	return &LintError{Form: form.ID, Source: form.Source, Problems: l.problems}
}

// IsLintError reports whether err carries lint problems.
func IsLintError(err error) bool {
	var lintErr *LintError
	return errors.As(err, &lintErr)
}

type linter struct {
	form     model.Form
	checker  visibility.Checker
	problems []string
}

func (l *linter) addf(format string, args ...any) {
	l.problems = append(l.problems, fmt.Sprintf(format, args...))
}

func (l *linter) run() {
	form := l.form
	if form.ID == "" {
		l.addf("form id is required")
	}
	if strings.TrimSpace(form.Title) == "" {
		l.addf("title is required")
	}
	if len(form.Steps) == 0 {
		l.addf("at least one step is required")
	}
	switch form.Response {
	case "", model.ResponseReference, model.ResponseAcknowledgement:
	default:
		l.addf("unknown response mode %q", form.Response)
	}

	names := make(map[string]int)
	stepIDs := make(map[string]struct{})
	for si, step := range form.Steps {
		if _, dup := stepIDs[step.ID]; dup {
			l.addf("duplicate step id %q", step.ID)
		}
		stepIDs[step.ID] = struct{}{}
		if strings.TrimSpace(step.Title) == "" {
			l.addf("step %d: title is required", si)
		}
		for _, field := range step.Fields {
			if prev, dup := names[field.Name]; dup {
				l.addf("field %q declared on steps %d and %d", field.Name, prev, si)
			}
			names[field.Name] = si
			l.field(field, field.Name)
		}
		for _, gated := range step.Validate {
			_, at, ok := form.Field(gated)
			switch {
			case !ok:
				l.addf("step %q gates unknown field %q", step.ID, gated)
			case at != si:
				l.addf("step %q gates %q which renders on step %d", step.ID, gated, at)
			}
		}
	}

	for _, check := range form.Checks {
		if check.Kind != model.CheckSumEquals {
			l.addf("unknown check kind %q", check.Kind)
		}
		if len(check.Fields) == 0 {
			l.addf("check %s has no fields", check.Kind)
		}
		for _, name := range check.Fields {
			if _, ok := names[name]; !ok {
				l.addf("check %s references unknown field %q", check.Kind, name)
			}
		}
		if check.Target != "" {
			if _, ok := names[check.Target]; !ok {
				l.addf("check %s targets unknown field %q", check.Kind, check.Target)
			}
		}
		if step := form.CheckStep(check); step < 0 || step >= len(form.Steps) {
			l.addf("check %s bound to missing step %d", check.Kind, step)
		}
		l.rule(check.When, "check "+string(check.Kind))
	}

	for name := range form.Payload.Rename {
		if _, ok := names[name]; !ok {
			l.addf("payload renames unknown field %q", name)
		}
	}
	for parent, nested := range form.Payload.Nest {
		if _, clash := names[parent]; clash {
			l.addf("payload nest key %q collides with a field", parent)
		}
		for _, name := range nested {
			if _, ok := names[name]; !ok {
				l.addf("payload nests unknown field %q", name)
			}
		}
	}
	for _, name := range form.Payload.Omit {
		if _, ok := names[name]; !ok {
			l.addf("payload omits unknown field %q", name)
		}
	}
}

func (l *linter) field(field model.Field, path string) {
	if strings.TrimSpace(field.Name) == "" {
		l.addf("%s: field name is required", path)
	}
	if strings.Contains(field.Name, ".") {
		l.addf("%s: field names cannot contain dots", path)
	}
	if _, ok := knownTypes[field.Type]; !ok {
		l.addf("%s: unknown type %q", path, field.Type)
	}
	if _, ok := knownFormats[field.Format]; !ok {
		l.addf("%s: unknown format %q", path, field.Format)
	}
	if field.Pattern != "" {
		if _, err := regexp.Compile(field.Pattern); err != nil {
			l.addf("%s: invalid pattern: %v", path, err)
		}
	}
	if field.Min != nil && field.Max != nil && *field.Min > *field.Max {
		l.addf("%s: min is greater than max", path)
	}
	switch field.Type {
	case model.FieldTypeSelect, model.FieldTypeMultiSelect:
		if len(field.Options) == 0 && field.OptionsFrom == "" {
			l.addf("%s: select fields need options or optionsFrom", path)
		}
	case model.FieldTypeGroup:
		if len(field.Item) == 0 {
			l.addf("%s: group fields need item fields", path)
		}
		seen := make(map[string]struct{}, len(field.Item))
		for _, item := range field.Item {
			if _, dup := seen[item.Name]; dup {
				l.addf("%s: duplicate item field %q", path, item.Name)
			}
			seen[item.Name] = struct{}{}
			if item.Type == model.FieldTypeGroup {
				l.addf("%s.%s: groups cannot nest", path, item.Name)
				continue
			}
			l.field(item, path+"."+item.Name)
		}
	}
	l.rule(field.When, path+" when")
	l.rule(field.RequiredWhen, path+" requiredWhen")
}

func (l *linter) rule(rule, where string) {
	if strings.TrimSpace(rule) == "" || l.checker == nil {
		return
	}
	if err := l.checker.Check(rule); err != nil {
		l.addf("%s: %v", where, err)
	}
}
