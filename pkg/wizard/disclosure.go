package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/visibility"
)

// Disclosure evaluates the `when` rules of a form. Every method is a pure
// function of the values passed in.
//
// Values of hidden fields are masked before later rules run, so a rule that
// references a hidden field sees it as absent. This makes two-level chains
// (sprinkler system -> sprinkler type -> coverage areas) collapse when the
// outer trigger is switched off.
type Disclosure struct {
	form      model.Form
	evaluator visibility.Evaluator
}

// NewDisclosure binds a form to an evaluator.
func NewDisclosure(form model.Form, evaluator visibility.Evaluator) *Disclosure {
	return &Disclosure{form: form, evaluator: evaluator}
}

// Visible returns the value paths rendered on step, in declaration order.
// Group fields contribute their own name followed by the visible item paths of
// every record (`vehicles`, `vehicles.0.vin`, ...).
func (d *Disclosure) Visible(step int, values map[string]any) ([]string, error) {
	if step < 0 || step >= len(d.form.Steps) {
		return nil, fmt.Errorf("wizard: step %d out of range", step)
	}
	hidden, err := d.hiddenFields(values)
	if err != nil {
		return nil, err
	}
	masked := mask(values, hidden)

	var out []string
	for _, field := range d.form.Steps[step].Fields {
		if _, ok := hidden[field.Name]; ok {
			continue
		}
		out = append(out, field.Name)
		if field.Type != model.FieldTypeGroup {
			continue
		}
		records, _ := masked[field.Name].([]any)
		for idx, raw := range records {
			record, _ := raw.(map[string]any)
			for _, item := range field.Item {
				path := field.Name + "." + strconv.Itoa(idx) + "." + item.Name
				ok, err := d.eval(path, item.When, masked, record)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, path)
				}
			}
		}
	}
	return out, nil
}

// IsVisible reports whether a single value path is currently rendered.
func (d *Disclosure) IsVisible(path string, values map[string]any) (bool, error) {
	segments := strings.Split(path, ".")
	hidden, err := d.hiddenFields(values)
	if err != nil {
		return false, err
	}
	if _, ok := hidden[segments[0]]; ok {
		return false, nil
	}
	if len(segments) < 3 {
		return true, nil
	}
	group, _, ok := d.form.Field(segments[0])
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	item, ok := group.ItemField(segments[2])
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	record, _ := getPath(values, segments[0]+"."+segments[1])
	scope, _ := record.(map[string]any)
	return d.eval(path, item.When, mask(values, hidden), scope)
}

// hiddenFields walks every top-level field in step order and returns the set
// whose `when` rule evaluates false.
func (d *Disclosure) hiddenFields(values map[string]any) (map[string]struct{}, error) {
	hidden := make(map[string]struct{})
	masked := values
	for _, field := range d.form.Fields() {
		if strings.TrimSpace(field.When) == "" {
			continue
		}
		ok, err := d.eval(field.Name, field.When, masked, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			hidden[field.Name] = struct{}{}
			masked = mask(values, hidden)
		}
	}
	return hidden, nil
}

func (d *Disclosure) eval(path, rule string, values, scope map[string]any) (bool, error) {
	if strings.TrimSpace(rule) == "" {
		return true, nil
	}
	return d.evaluator.Eval(path, rule, visibility.Context{Values: values, Scope: scope})
}

func mask(values map[string]any, hidden map[string]struct{}) map[string]any {
	if len(hidden) == 0 {
		return values
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if _, ok := hidden[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}
