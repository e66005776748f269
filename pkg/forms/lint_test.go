package forms_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-quoteforms/pkg/forms"
	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/visibility/expr"
)

func TestLintReportsEveryProblem(t *testing.T) {
	form := model.Form{
		ID:       "bad",
		Title:    "Bad",
		Response: "maybe",
		Steps: []model.Step{
			{
				ID:       "one",
				Title:    "One",
				Validate: []string{"missing", "later"},
				Fields: []model.Field{
					{Name: "a", Type: model.FieldTypeText, When: "x = 1"},
					{Name: "b", Type: "slider"},
					{Name: "c", Type: model.FieldTypeSelect},
					{Name: "d", Type: model.FieldTypeText, Pattern: "("},
					{Name: "e", Type: model.FieldTypeText, Format: "ssn"},
				},
			},
			{
				ID:    "one",
				Title: "Two",
				Fields: []model.Field{
					{Name: "later", Type: model.FieldTypeText},
					{Name: "a", Type: model.FieldTypeText},
					{Name: "g", Type: model.FieldTypeGroup},
				},
			},
		},
		Checks:  []model.Check{{Kind: "avg", Fields: []string{"zzz"}}},
		Payload: model.Payload{Rename: map[string]string{"nope": "x"}, Omit: []string{"gone"}},
	}

	err := forms.Lint(form, expr.New())
	if err == nil {
		t.Fatalf("expected lint error")
	}
	if !forms.IsLintError(err) {
		t.Fatalf("expected *LintError, got %T", err)
	}
	msg := err.Error()
	for _, fragment := range []string{
		`unknown response mode "maybe"`,
		`gates unknown field "missing"`,
		`gates "later" which renders on step 1`,
		"a when:",
		`b: unknown type "slider"`,
		"c: select fields need options or optionsFrom",
		"d: invalid pattern",
		`e: unknown format "ssn"`,
		`duplicate step id "one"`,
		`field "a" declared on steps 0 and 1`,
		"g: group fields need item fields",
		`unknown check kind "avg"`,
		`references unknown field "zzz"`,
		`payload renames unknown field "nope"`,
		`payload omits unknown field "gone"`,
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("lint output missing %q\n%s", fragment, msg)
		}
	}
}

func TestBundledDefinitionsLintClean(t *testing.T) {
	loaded, err := forms.LoadFS(forms.EmbeddedFS())
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	for _, form := range loaded {
		if err := forms.Lint(form, expr.New()); err != nil {
			t.Errorf("%s: %v", form.ID, err)
		}
	}
}
