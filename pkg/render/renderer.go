package render

import (
	"context"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// Renderer turns a wizard View into a byte representation (HTML, text).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View) ([]byte, error)
}

// Phase mirrors the wizard session phase for presentation purposes.
type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
)

// View is everything a renderer needs to draw one screen of a wizard. It is a
// read-only projection of a session; renderers never mutate form state.
type View struct {
	Form      model.Form
	Step      int
	Phase     Phase
	Visible   []string
	Values    map[string]any
	Errors    map[string][]string
	FormError string
	Reference string
	Action    string
	Hidden    []HiddenField
}

// IsVisible reports whether path is part of the rendered field set.
func (v View) IsVisible(path string) bool {
	for _, candidate := range v.Visible {
		if candidate == path {
			return true
		}
	}
	return false
}

// IsLast reports whether the view shows the final step.
func (v View) IsLast() bool {
	return v.Step >= v.Form.LastStep()
}
