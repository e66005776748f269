package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/render"
)

const (
	stepTemplate    = "step.tpl"
	successTemplate = "success.tpl"
	indexTemplate   = "index.tpl"

	defaultSiteTitle = "Request a Quote"
)

// Option configures the renderer.
type Option func(*config)

type config struct {
	templates fs.FS
	siteTitle string
	formPath  func(model.Form) string
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templates = os.DirFS(path)
	}
}

// WithSiteTitle sets the title shown in the page header.
func WithSiteTitle(title string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(title) != "" {
			cfg.siteTitle = title
		}
	}
}

// WithFormPath sets how catalogue entries link to a wizard. The default is
// `/quote/<id>`.
func WithFormPath(fn func(model.Form) string) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.formPath = fn
		}
	}
}

// Renderer draws wizard views as HTML pages.
type Renderer struct {
	engine   *engine
	formPath func(model.Form) string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer over the embedded templates unless overridden.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templates: TemplatesFS(),
		siteTitle: defaultSiteTitle,
		formPath: func(form model.Form) string {
			return "/quote/" + form.ID
		},
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	eng, err := newEngine(cfg.templates, pongo2.Context{"siteTitle": cfg.siteTitle})
	if err != nil {
		return nil, err
	}
	return &Renderer{engine: eng, formPath: cfg.formPath}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws the current step, or the confirmation page once the view is
// in the submitted phase.
func (r *Renderer) Render(ctx context.Context, view render.View) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(view.Form.Steps) == 0 {
		return nil, fmt.Errorf("html: form %q has no steps", view.Form.ID)
	}

	if view.Phase == render.PhaseSubmitted {
		return r.engine.render(successTemplate, pongo2.Context{
			"form":      view.Form,
			"reference": view.Reference,
			"message":   successMessage(view.Form),
			"action":    view.Action,
			"hidden":    view.Hidden,
		})
	}

	return r.engine.render(stepTemplate, pongo2.Context{
		"form":       view.Form,
		"steps":      buildSteps(view),
		"step":       view.Form.Steps[view.Step],
		"stepNumber": view.Step + 1,
		"stepCount":  len(view.Form.Steps),
		"isFirst":    view.Step == 0,
		"isLast":     view.IsLast(),
		"submitting": view.Phase == render.PhaseSubmitting,
		"fields":     buildFields(view),
		"formError":  view.FormError,
		"action":     view.Action,
		"hidden":     view.Hidden,
	})
}

type catalogEntry struct {
	ID          string
	Title       string
	Description string
	Href        string
}

// RenderIndex draws the catalogue of available quote forms.
func (r *Renderer) RenderIndex(ctx context.Context, forms []model.Form) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := make([]catalogEntry, 0, len(forms))
	for _, form := range forms {
		entries = append(entries, catalogEntry{
			ID:          form.ID,
			Title:       form.Title,
			Description: form.Description,
			Href:        r.formPath(form),
		})
	}
	return r.engine.render(indexTemplate, pongo2.Context{"forms": entries})
}

type stepView struct {
	Number  int
	Title   string
	Icon    string
	Current bool
	Done    bool
}

func buildSteps(view render.View) []stepView {
	out := make([]stepView, 0, len(view.Form.Steps))
	for idx, step := range view.Form.Steps {
		out = append(out, stepView{
			Number:  idx + 1,
			Title:   step.Title,
			Icon:    step.Icon,
			Current: idx == view.Step,
			Done:    idx < view.Step,
		})
	}
	return out
}

func successMessage(form model.Form) string {
	if msg := strings.TrimSpace(form.SuccessMessage); msg != "" {
		return msg
	}
	if form.Mode() == model.ResponseAcknowledgement {
		return "Thank you. Your request has been received and our team will be in touch shortly."
	}
	return "Thank you. Your quote request has been submitted."
}
