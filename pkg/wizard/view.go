package wizard

import (
	"errors"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/render"
	"github.com/goliatone/go-quoteforms/pkg/submit"
)

const genericFailure = "Something went wrong while sending your request. Please try again."

// View projects the session into what a renderer draws. action is the target
// the rendered form posts to; hidden fields are carried through sorted.
func (s *Session) View(action string, hidden ...render.HiddenField) (render.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.controller.Current()
	values := s.state.Snapshot()
	visible, err := s.disclosure.Visible(step, values)
	if err != nil {
		return render.View{}, err
	}

	errs := make(map[string][]string, len(s.fieldErrors))
	for path, messages := range s.fieldErrors {
		errs[path] = append([]string(nil), messages...)
	}

	view := render.View{
		Form:      s.form,
		Step:      step,
		Phase:     render.Phase(s.phase),
		Visible:   visible,
		Values:    values,
		Errors:    errs,
		FormError: FailureMessage(s.lastErr),
		Action:    action,
		Hidden:    render.SortedHiddenFields(hidden...),
	}
	if s.phase == PhaseSubmitted {
		view.Reference = s.receipt.ReferenceNumber
	}
	return view, nil
}

// FailureMessage turns a submission error into the banner shown above the
// form. Validation errors are reported per field and produce no banner.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return ""
	}
	var subErr *submit.Error
	if !errors.As(err, &subErr) {
		return genericFailure
	}
	switch {
	case len(subErr.Form) > 0:
		return strings.Join(render.MergeFormErrors(subErr.Form), " ")
	case errors.Is(subErr, submit.ErrMissingReference):
		return "Your request was received but no reference number was returned. Please contact us before resubmitting."
	case subErr.Message != "":
		return subErr.Message
	default:
		return genericFailure
	}
}
