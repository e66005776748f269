package html_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/render"
	htmlrenderer "github.com/goliatone/go-quoteforms/pkg/renderers/html"
)

func sampleForm() model.Form {
	return model.Form{
		ID:    "trucking",
		Title: "Trucking Quote",
		Steps: []model.Step{
			{
				ID:    "company",
				Title: "Company",
				Fields: []model.Field{
					{Name: "applicantName", Type: model.FieldTypeText, Required: true},
					{Name: "contactPhone", Type: model.FieldTypeText, Format: model.FormatPhone, Help: `Use <em>555-555-5555</em><script>alert(1)</script>`},
				},
			},
			{
				ID:    "fleet",
				Title: "Fleet",
				Fields: []model.Field{
					{Name: "radius", Type: model.FieldTypeSelect, Options: []model.Option{{Value: "local", Label: "Local"}, {Value: "long", Label: "Long haul"}}},
					{Name: "hazmat", Type: model.FieldTypeBoolean},
					{
						Name:      "vehicles",
						Type:      model.FieldTypeGroup,
						ItemLabel: "Vehicle",
						Item: []model.Field{
							{Name: "vin", Type: model.FieldTypeText, Required: true},
							{Name: "year", Type: model.FieldTypeNumber, Min: floatPtr(1950)},
						},
					},
					{Name: "registration", Type: model.FieldTypeFile, Accept: []string{".pdf"}},
				},
			},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }

func newRenderer(t *testing.T) *htmlrenderer.Renderer {
	t.Helper()
	r, err := htmlrenderer.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func mustContain(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, out)
		}
	}
}

func TestRenderFirstStep(t *testing.T) {
	view := render.View{
		Form:    sampleForm(),
		Step:    0,
		Phase:   render.PhaseEditing,
		Visible: []string{"applicantName", "contactPhone"},
		Values:  map[string]any{"applicantName": "Acme & Sons", "contactPhone": "5555"},
		Errors:  map[string][]string{"contactPhone": {"must be in the format 555-555-5555"}},
		Action:  "/quote/trucking",
		Hidden:  []render.HiddenField{{Name: "step", Value: "0"}},
	}

	out, err := newRenderer(t).Render(context.Background(), view)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)
	mustContain(t, html,
		"<h1>Trucking Quote</h1>",
		"Step 1 of 2",
		`name="applicantName" value="Acme &amp; Sons"`,
		`type="tel" id="field-contactPhone"`,
		"must be in the format 555-555-5555",
		"<em>555-555-5555</em>",
		`value="next"`,
		`<input type="hidden" name="step" value="0">`,
	)
	if strings.Contains(html, "<script>") {
		t.Fatalf("help text was not sanitised:\n%s", html)
	}
	if strings.Contains(html, `value="back"`) {
		t.Fatalf("first step must not offer Back")
	}
}

func TestRenderLastStepWithGroups(t *testing.T) {
	view := render.View{
		Form:    sampleForm(),
		Step:    1,
		Phase:   render.PhaseEditing,
		Visible: []string{"radius", "hazmat", "vehicles", "vehicles.0.vin", "vehicles.0.year", "registration"},
		Values: map[string]any{
			"radius":       "long",
			"hazmat":       true,
			"vehicles":     []any{map[string]any{"vin": "1HGCM", "year": "2019"}},
			"registration": model.Attachment{Name: "reg.pdf", Size: 2048},
		},
		Errors:    map[string][]string{"vehicles.0.vin": {"is required"}},
		FormError: "Something went wrong while sending your request. Please try again.",
		Action:    "/quote/trucking",
	}

	out, err := newRenderer(t).Render(context.Background(), view)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	mustContain(t, string(out),
		`<option value="long" selected>Long haul</option>`,
		`name="hazmat" value="true" checked`,
		"Vehicle 1",
		`name="vehicles.0.vin" value="1HGCM"`,
		`min="1950"`,
		`value="remove:vehicles:0"`,
		`value="add:vehicles"`,
		"reg.pdf (2.0 KB)",
		`accept=".pdf"`,
		`role="alert"`,
		`value="back"`,
		`value="submit"`,
	)
}

func TestRenderSubmittingDisablesActions(t *testing.T) {
	view := render.View{
		Form:    sampleForm(),
		Step:    1,
		Phase:   render.PhaseSubmitting,
		Visible: []string{"radius"},
		Values:  map[string]any{},
	}
	out, err := newRenderer(t).Render(context.Background(), view)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	mustContain(t, string(out), "<fieldset disabled>", "Submitting...")
}

func TestRenderSuccessShowsReference(t *testing.T) {
	view := render.View{
		Form:      sampleForm(),
		Phase:     render.PhaseSubmitted,
		Reference: "REF123",
		Action:    "/quote/trucking",
	}
	out, err := newRenderer(t).Render(context.Background(), view)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	mustContain(t, string(out), "Reference Number: REF123", `value="restart"`)
}

func TestRenderAcknowledgementSuccess(t *testing.T) {
	form := sampleForm()
	form.Response = model.ResponseAcknowledgement
	form.SuccessMessage = "Thanks, we will call you."
	out, err := newRenderer(t).Render(context.Background(), render.View{Form: form, Phase: render.PhaseSubmitted})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)
	mustContain(t, html, "Thanks, we will call you.")
	if strings.Contains(html, "Reference Number") {
		t.Fatalf("acknowledgement page must not show a reference:\n%s", html)
	}
}

func TestRenderIndex(t *testing.T) {
	forms := []model.Form{
		{ID: "trucking", Title: "Trucking Quote", Description: "Fleets and owner operators"},
		{ID: "restaurants", Title: "Restaurant Quote"},
	}
	out, err := newRenderer(t).RenderIndex(context.Background(), forms)
	if err != nil {
		t.Fatalf("RenderIndex: %v", err)
	}
	mustContain(t, string(out),
		`<a href="/quote/trucking">Trucking Quote</a>`,
		"Fleets and owner operators",
		`<a href="/quote/restaurants">Restaurant Quote</a>`,
	)
}

func TestRenderRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newRenderer(t).Render(ctx, render.View{Form: sampleForm()}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRendererIdentity(t *testing.T) {
	r := newRenderer(t)
	if r.Name() != "html" || r.ContentType() != "text/html; charset=utf-8" {
		t.Fatalf("unexpected identity %s %s", r.Name(), r.ContentType())
	}
	var _ render.Renderer = r
}
