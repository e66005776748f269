package html

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/render"
)

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// sanitizeHelp keeps the inline markup help text is allowed to carry (links,
// emphasis) and drops everything else.
func sanitizeHelp(help string) string {
	helpPolicyOnce.Do(func() {
		helpPolicy = bluemonday.UGCPolicy()
		helpPolicy.RequireNoFollowOnLinks(true)
	})
	return helpPolicy.Sanitize(strings.TrimSpace(help))
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fileView struct {
	Name string
	Size string
}

type recordView struct {
	Index        int
	Label        string
	RemoveAction string
	Fields       []fieldView
}

type fieldView struct {
	Name        string
	ID          string
	Label       string
	Type        string
	InputType   string
	Required    bool
	Value       string
	Checked     bool
	Multiple    bool
	Accept      string
	Placeholder string
	Help        string
	Min         string
	Max         string
	Options     []optionView
	Files       []fileView
	Errors      []string
	Records     []recordView
	AddAction   string
	AddLabel    string
}

// buildFields projects the visible fields of the current step.
func buildFields(view render.View) []fieldView {
	if view.Step < 0 || view.Step >= len(view.Form.Steps) {
		return nil
	}
	var out []fieldView
	for _, field := range view.Form.Steps[view.Step].Fields {
		if !view.IsVisible(field.Name) {
			continue
		}
		fv := newFieldView(field, field.Name, view.Values[field.Name], view.Errors[field.Name])
		if field.Type == model.FieldTypeGroup {
			fv.Records = buildRecords(field, view)
			fv.AddAction = "add:" + field.Name
			fv.AddLabel = "Add " + itemLabel(field)
		}
		out = append(out, fv)
	}
	return out
}

func buildRecords(group model.Field, view render.View) []recordView {
	items, _ := view.Values[group.Name].([]any)
	records := make([]recordView, 0, len(items))
	for idx, raw := range items {
		record, _ := raw.(map[string]any)
		rv := recordView{
			Index:        idx,
			Label:        fmt.Sprintf("%s %d", itemLabel(group), idx+1),
			RemoveAction: fmt.Sprintf("remove:%s:%d", group.Name, idx),
		}
		for _, item := range group.Item {
			path := group.Name + "." + strconv.Itoa(idx) + "." + item.Name
			if !view.IsVisible(path) {
				continue
			}
			rv.Fields = append(rv.Fields, newFieldView(item, path, record[item.Name], view.Errors[path]))
		}
		records = append(records, rv)
	}
	return records
}

func itemLabel(group model.Field) string {
	if label := strings.TrimSpace(group.ItemLabel); label != "" {
		return label
	}
	return "Item"
}

func newFieldView(field model.Field, path string, value any, errs []string) fieldView {
	fv := fieldView{
		Name:        path,
		ID:          "field-" + strings.ReplaceAll(path, ".", "-"),
		Label:       field.DisplayLabel(),
		Type:        string(field.Type),
		InputType:   inputType(field),
		Required:    field.Required,
		Multiple:    field.Multiple,
		Accept:      strings.Join(field.Accept, ","),
		Placeholder: field.Placeholder,
		Help:        sanitizeHelp(field.Help),
		Errors:      errs,
	}
	if field.Min != nil {
		fv.Min = strconv.FormatFloat(*field.Min, 'f', -1, 64)
	}
	if field.Max != nil {
		fv.Max = strconv.FormatFloat(*field.Max, 'f', -1, 64)
	}

	switch field.Type {
	case model.FieldTypeBoolean:
		fv.Checked, _ = value.(bool)
	case model.FieldTypeSelect:
		fv.Value = scalar(value)
		fv.Options = options(field, map[string]bool{fv.Value: true})
	case model.FieldTypeMultiSelect:
		selected := make(map[string]bool)
		for _, v := range selections(value) {
			selected[v] = true
		}
		fv.Options = options(field, selected)
	case model.FieldTypeFile:
		fv.Files = files(value)
	case model.FieldTypeGroup:
	default:
		fv.Value = scalar(value)
	}
	return fv
}

func inputType(field model.Field) string {
	switch field.Type {
	case model.FieldTypeDate:
		return "date"
	case model.FieldTypeNumber:
		return "number"
	}
	switch field.Format {
	case model.FormatPhone:
		return "tel"
	case model.FormatEmail:
		return "email"
	}
	return "text"
}

func options(field model.Field, selected map[string]bool) []optionView {
	out := make([]optionView, 0, len(field.Options))
	for _, opt := range field.Options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		out = append(out, optionView{Value: opt.Value, Label: label, Selected: selected[opt.Value]})
	}
	return out
}

func scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func selections(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

func files(value any) []fileView {
	var attachments []model.Attachment
	switch v := value.(type) {
	case model.Attachment:
		attachments = append(attachments, v)
	case []model.Attachment:
		attachments = v
	case []any:
		for _, item := range v {
			if a, ok := item.(model.Attachment); ok {
				attachments = append(attachments, a)
			}
		}
	}
	out := make([]fileView, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, fileView{Name: a.Name, Size: byteSize(a.Size)})
	}
	return out
}

func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
