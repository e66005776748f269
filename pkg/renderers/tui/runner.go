package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/submit"
	"github.com/goliatone/go-quoteforms/pkg/visibility/expr"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

type action string

const (
	actionNext   action = "Next"
	actionBack   action = "Back"
	actionSubmit action = "Submit"
	actionCancel action = "Cancel"

	skipOption = "(none)"
)

// Runner walks a wizard session in the terminal, one prompt per visible
// field, until the quote request is submitted or the user cancels.
type Runner struct {
	driver   PromptDriver
	out      io.Writer
	theme    Theme
	readFile func(string) ([]byte, error)
}

// New constructs a runner with the survey driver unless one is supplied.
func New(options ...Option) (*Runner, error) {
	r := &Runner{
		theme:    defaultTheme(),
		readFile: os.ReadFile,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(r.out)
	}
	return r, nil
}

// Run drives session to completion and returns the backend receipt. Failed
// submissions are reported and the user is returned to the last step with
// their answers kept, so a retry is a fresh attempt.
func (r *Runner) Run(ctx context.Context, session *wizard.Session) (submit.Receipt, error) {
	if ctx == nil {
		return submit.Receipt{}, errors.New("tui: context is required")
	}
	if session == nil {
		return submit.Receipt{}, errors.New("tui: session is required")
	}
	form := session.Form()
	validator, err := wizard.NewValidator(form, expr.New())
	if err != nil {
		return submit.Receipt{}, fmt.Errorf("tui: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return submit.Receipt{}, err
		}
		if receipt, ok := session.Receipt(); ok {
			return receipt, r.announce(ctx, form, receipt)
		}

		step := session.Step()
		if err := r.say(ctx, r.theme.StepPrefix, fmt.Sprintf("Step %d of %d: %s", step+1, len(form.Steps), form.Steps[step].Title)); err != nil {
			return submit.Receipt{}, err
		}
		if msg := wizard.FailureMessage(session.LastError()); msg != "" {
			if err := r.say(ctx, r.theme.ErrorPrefix, msg); err != nil {
				return submit.Receipt{}, err
			}
			session.DismissError()
		}

		for _, field := range form.Steps[step].Fields {
			if err := r.promptVisible(ctx, session, validator, field, field.Name, nil); err != nil {
				return submit.Receipt{}, err
			}
		}

		next, err := r.chooseAction(ctx, step, len(form.Steps))
		if err != nil {
			return submit.Receipt{}, err
		}
		switch next {
		case actionNext:
			err = session.Next()
		case actionBack:
			err = session.Back()
		case actionSubmit:
			_, err = session.Submit(ctx)
		case actionCancel:
			return submit.Receipt{}, ErrAborted
		}

		var vErr *wizard.ValidationError
		var subErr *submit.Error
		switch {
		case err == nil:
		case errors.As(err, &vErr):
			if err := r.say(ctx, r.theme.ErrorPrefix, "Please correct the highlighted fields."); err != nil {
				return submit.Receipt{}, err
			}
		case errors.As(err, &subErr), session.LastError() != nil:
			// reported at the top of the next pass
		default:
			return submit.Receipt{}, err
		}
	}
}

func (r *Runner) announce(ctx context.Context, form model.Form, receipt submit.Receipt) error {
	if receipt.ReferenceNumber != "" {
		if err := r.say(ctx, r.theme.InfoPrefix, successMessage(form)); err != nil {
			return err
		}
		return r.say(ctx, r.theme.InfoPrefix, "Reference Number: "+receipt.ReferenceNumber)
	}
	return r.say(ctx, r.theme.InfoPrefix, successMessage(form))
}

func successMessage(form model.Form) string {
	if msg := strings.TrimSpace(form.SuccessMessage); msg != "" {
		return msg
	}
	return "Thank you. Your quote request has been submitted."
}

func (r *Runner) chooseAction(ctx context.Context, step, count int) (action, error) {
	actions := []action{actionNext}
	if step >= count-1 {
		actions = []action{actionSubmit}
	}
	if step > 0 {
		actions = append(actions, actionBack)
	}
	actions = append(actions, actionCancel)

	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = string(a)
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Continue", Options: labels})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(actions) {
		return "", fmt.Errorf("tui: invalid choice %d", idx)
	}
	return actions[idx], nil
}

// promptVisible asks for path when it is currently visible. Visibility is
// re-read before every prompt so answers reveal or hide the fields after them.
func (r *Runner) promptVisible(ctx context.Context, session *wizard.Session, validator *wizard.Validator, field model.Field, path string, scope map[string]any) error {
	visible, err := session.Visible()
	if err != nil {
		return err
	}
	if !contains(visible, path) {
		return nil
	}
	for _, msg := range session.FieldErrors()[path] {
		if err := r.say(ctx, r.theme.ErrorPrefix, field.DisplayLabel()+": "+msg); err != nil {
			return err
		}
	}

	current := valueAt(session.Values(), path)
	label := field.DisplayLabel()
	help := strings.TrimSpace(field.Help)

	switch field.Type {
	case model.FieldTypeGroup:
		return r.promptGroup(ctx, session, validator, field)
	case model.FieldTypeBoolean:
		b, _ := current.(bool)
		answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: b, Help: help})
		if err != nil {
			return err
		}
		return session.Set(path, answer)
	case model.FieldTypeSelect:
		return r.promptSelect(ctx, session, field, path, current)
	case model.FieldTypeMultiSelect:
		return r.promptMultiSelect(ctx, session, field, path, current)
	case model.FieldTypeFile:
		return r.promptFiles(ctx, session, field, path)
	case model.FieldTypeTextArea:
		answer, err := r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: scalar(current), Help: help})
		if err != nil {
			return err
		}
		return session.Set(path, strings.TrimSpace(answer))
	default:
		answer, err := r.driver.Input(ctx, InputConfig{
			Message: label,
			Default: scalar(current),
			Help:    help,
			Validator: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return nil
				}
				if msgs := validator.ValidateValue(field, path, strings.TrimSpace(s), session.Values(), scope); len(msgs) > 0 {
					return errors.New(msgs[0])
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
		return session.Set(path, strings.TrimSpace(answer))
	}
}

func (r *Runner) promptSelect(ctx context.Context, session *wizard.Session, field model.Field, path string, current any) error {
	var labels, values []string
	if !field.Required {
		labels = append(labels, skipOption)
		values = append(values, "")
	}
	optLabels, optValues := choices(field)
	labels = append(labels, optLabels...)
	values = append(values, optValues...)
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      field.DisplayLabel(),
		Options:      labels,
		DefaultIndex: slices.Index(values, scalar(current)),
		Help:         field.Help,
		PageSize:     10,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(values) {
		return fmt.Errorf("tui: invalid choice %d for %s", idx, path)
	}
	return session.Set(path, values[idx])
}

func (r *Runner) promptMultiSelect(ctx context.Context, session *wizard.Session, field model.Field, path string, current any) error {
	labels, values := choices(field)
	var defaults []int
	for _, sel := range selections(current) {
		if idx := slices.Index(values, sel); idx >= 0 {
			defaults = append(defaults, idx)
		}
	}
	picked, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  field.DisplayLabel(),
		Options:  labels,
		Defaults: defaults,
		Help:     field.Help,
		PageSize: 10,
	})
	if err != nil {
		return err
	}
	chosen := make([]string, 0, len(picked))
	for _, idx := range picked {
		if idx >= 0 && idx < len(values) {
			chosen = append(chosen, values[idx])
		}
	}
	return session.Set(path, chosen)
}

func (r *Runner) promptFiles(ctx context.Context, session *wizard.Session, field model.Field, path string) error {
	message := field.DisplayLabel() + " (file path, blank to skip)"
	if field.Multiple {
		message = field.DisplayLabel() + " (comma separated file paths, blank to skip)"
	}
	for {
		answer, err := r.driver.Input(ctx, InputConfig{Message: message, Help: strings.Join(field.Accept, ", ")})
		if err != nil {
			return err
		}
		paths := splitPaths(answer)
		if len(paths) == 0 {
			return nil
		}
		attachments, err := r.readAttachments(paths, field.Accept)
		if err != nil {
			if err := r.say(ctx, r.theme.ErrorPrefix, err.Error()); err != nil {
				return err
			}
			continue
		}
		if field.Multiple {
			return session.Set(path, attachments)
		}
		return session.Set(path, attachments[0])
	}
}

func (r *Runner) readAttachments(paths []string, accept []string) ([]model.Attachment, error) {
	out := make([]model.Attachment, 0, len(paths))
	for _, p := range paths {
		data, err := r.readFile(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
		a := model.Attachment{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Size:        int64(len(data)),
			Data:        data,
		}
		if !a.Accepts(accept) {
			return nil, fmt.Errorf("%s is not an accepted file type (%s)", a.Name, strings.Join(accept, ", "))
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Runner) promptGroup(ctx context.Context, session *wizard.Session, validator *wizard.Validator, group model.Field) error {
	label := group.ItemLabel
	if label == "" {
		label = "item"
	}

	records := func() []any {
		items, _ := session.Values()[group.Name].([]any)
		return items
	}

	for idx := 0; idx < len(records()); {
		if err := r.promptRecord(ctx, session, validator, group, label, idx); err != nil {
			return err
		}
		remove, err := r.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Remove %s %d?", label, idx+1)})
		if err != nil {
			return err
		}
		if remove {
			if err := session.RemoveItem(group.Name, idx); err != nil {
				return err
			}
			continue
		}
		idx++
	}

	for {
		n := len(records())
		if group.MaxItems > 0 && n >= group.MaxItems {
			return nil
		}
		question := fmt.Sprintf("Add a %s?", label)
		if n > 0 {
			question = fmt.Sprintf("Add another %s?", label)
		}
		add, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("%s: %s", group.DisplayLabel(), question),
			Default: n < group.MinItems,
		})
		if err != nil {
			return err
		}
		if !add {
			return nil
		}
		idx, err := session.AppendItem(group.Name)
		if err != nil {
			return err
		}
		if err := r.promptRecord(ctx, session, validator, group, label, idx); err != nil {
			return err
		}
	}
}

func (r *Runner) promptRecord(ctx context.Context, session *wizard.Session, validator *wizard.Validator, group model.Field, label string, idx int) error {
	if err := r.say(ctx, r.theme.InfoPrefix, fmt.Sprintf("%s %d", label, idx+1)); err != nil {
		return err
	}
	for _, item := range group.Item {
		path := group.Name + "." + strconv.Itoa(idx) + "." + item.Name
		record, _ := valueAt(session.Values(), group.Name+"."+strconv.Itoa(idx)).(map[string]any)
		if err := r.promptVisible(ctx, session, validator, item, path, record); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) say(ctx context.Context, prefix, msg string) error {
	if prefix != "" {
		msg = prefix + " " + msg
	}
	return r.driver.Info(ctx, msg)
}

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

func valueAt(values map[string]any, path string) any {
	var current any = values
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[segment]
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
	}
	return current
}

// choices returns option labels and values in field order; an option with
// no label shows its value.
func choices(field model.Field) (labels, values []string) {
	for _, opt := range field.Options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		labels = append(labels, label)
		values = append(values, opt.Value)
	}
	return labels, values
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
	}
	return nil
}

func splitPaths(answer string) []string {
	var out []string
	for _, p := range strings.Split(answer, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
