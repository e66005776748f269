package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-quoteforms/pkg/render"
)

func TestSortedHiddenFields(t *testing.T) {
	got := render.SortedHiddenFields(
		render.Hidden("step", 2),
		render.Hidden(" session ", "abc"),
		render.Hidden("", "dropped"),
		render.Hidden("step", 3),
	)
	want := []render.HiddenField{
		{Name: "session", Value: "abc"},
		{Name: "step", Value: "3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}
	if render.SortedHiddenFields() != nil {
		t.Fatalf("expected nil for no fields")
	}
}
