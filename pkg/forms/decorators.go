package forms

import (
	"fmt"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// OptionSource resolves a named list of choices, for example `usStates`.
type OptionSource interface {
	Options(name string) ([]model.Option, bool)
}

// OptionsDecorator fills select and multiselect fields that declare
// `optionsFrom` with the choices provided by source. Fields with inline
// options are left alone.
func OptionsDecorator(source OptionSource) model.Decorator {
	return model.DecoratorFunc(func(form *model.Form) error {
		for si := range form.Steps {
			if err := fillOptions(form.Steps[si].Fields, source); err != nil {
				return err
			}
		}
		return nil
	})
}

func fillOptions(fields []model.Field, source OptionSource) error {
	for i := range fields {
		field := &fields[i]
		if err := fillOptions(field.Item, source); err != nil {
			return err
		}
		if field.OptionsFrom == "" || len(field.Options) > 0 {
			continue
		}
		options, ok := source.Options(field.OptionsFrom)
		if !ok {
			return fmt.Errorf("field %s: unknown option source %q", field.Name, field.OptionsFrom)
		}
		field.Options = append([]model.Option(nil), options...)
	}
	return nil
}
