package wizard_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

func TestNewStateSeedsDefaults(t *testing.T) {
	state := wizard.NewState(propertyForm())

	got := state.Values()
	want := map[string]any{
		"applicantName":      "",
		"contactPhone":       "",
		"contactEmail":       "",
		"website":            "",
		"yearBuilt":          "",
		"sprinklered":        false,
		"sprinklerType":      "",
		"coverageAreas":      []any{},
		"vehicles":           []any{},
		"residentialPercent": "",
		"commercialPercent":  "",
		"subcontractorCost":  "",
		"agreeToTerms":       false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestStateSetNormalisesValues(t *testing.T) {
	state := wizard.NewState(propertyForm())

	if err := state.Set("sprinklered", "yes"); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if err := state.Set("coverageAreas", []string{"office"}); err != nil {
		t.Fatalf("Set multiselect: %v", err)
	}
	if err := state.Set("yearBuilt", 1999); err != nil {
		t.Fatalf("Set text: %v", err)
	}

	if v, _ := state.Get("sprinklered"); v != true {
		t.Fatalf("expected true, got %v", v)
	}
	if v, _ := state.Get("yearBuilt"); v != "1999" {
		t.Fatalf("expected string 1999, got %#v", v)
	}
	if diff := cmp.Diff([]any{"office"}, state.Values()["coverageAreas"]); diff != "" {
		t.Fatalf("multiselect mismatch (-want +got):\n%s", diff)
	}
}

func TestStateSetRejectsUnknownPaths(t *testing.T) {
	state := wizard.NewState(propertyForm())

	if err := state.Set("nope", "x"); !errors.Is(err, wizard.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := state.Set("vehicles.0.vin", "x"); err == nil {
		t.Fatalf("expected error writing into a missing record")
	}
	if err := state.Set("vehicles", []any{}); err == nil {
		t.Fatalf("expected error writing a group directly")
	}
}

func TestStateRemoveItemKeepsOtherRecords(t *testing.T) {
	state := wizard.NewState(propertyForm())
	for i := 0; i < 3; i++ {
		if _, err := state.AppendItem("vehicles"); err != nil {
			t.Fatalf("AppendItem: %v", err)
		}
	}
	for i, vin := range []string{"VIN-A", "VIN-B", "VIN-C"} {
		if err := state.Set("vehicles."+string(rune('0'+i))+".vin", vin); err != nil {
			t.Fatalf("Set vin: %v", err)
		}
	}
	if err := state.Set("vehicles.1.hasTrailer", true); err != nil {
		t.Fatalf("Set trailer: %v", err)
	}

	if err := state.RemoveItem("vehicles", 0); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	want := []any{
		map[string]any{"vin": "VIN-B", "hasTrailer": true, "trailerType": ""},
		map[string]any{"vin": "VIN-C", "hasTrailer": false, "trailerType": ""},
	}
	if diff := cmp.Diff(want, state.Items("vehicles")); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if err := state.RemoveItem("vehicles", 5); err == nil {
		t.Fatalf("expected out of range error")
	}
	if _, err := state.AppendItem("applicantName"); !errors.Is(err, wizard.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
}

func TestStateSnapshotIsIndependent(t *testing.T) {
	state := wizard.NewState(propertyForm())
	if _, err := state.AppendItem("vehicles"); err != nil {
		t.Fatalf("AppendItem: %v", err)
	}
	snap := state.Snapshot()
	if err := state.Set("vehicles.0.vin", "changed"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	record := snap["vehicles"].([]any)[0].(map[string]any)
	if record["vin"] != "" {
		t.Fatalf("snapshot was mutated: %v", record)
	}
}

func TestStateResetRestoresDefaults(t *testing.T) {
	state := wizard.NewState(propertyForm())
	_ = state.Set("applicantName", "Acme")
	_, _ = state.AppendItem("vehicles")

	state.Reset()

	if v, _ := state.Get("applicantName"); v != "" {
		t.Fatalf("expected empty name, got %v", v)
	}
	if n := len(state.Items("vehicles")); n != 0 {
		t.Fatalf("expected no vehicles, got %d", n)
	}
}

func TestStateAttachments(t *testing.T) {
	form := model.Form{Steps: []model.Step{{Fields: []model.Field{
		{Name: "lossRuns", Type: model.FieldTypeFile, Multiple: true},
		{Name: "schedule", Type: model.FieldTypeFile},
	}}}}
	state := wizard.NewState(form)

	doc := model.Attachment{Name: "runs.pdf", ContentType: "application/pdf", Size: 4}
	if err := state.Set("lossRuns", doc); err != nil {
		t.Fatalf("Set multiple: %v", err)
	}
	if err := state.Set("schedule", []model.Attachment{doc}); err != nil {
		t.Fatalf("Set single: %v", err)
	}
	if diff := cmp.Diff([]any{doc}, state.Values()["lossRuns"]); diff != "" {
		t.Fatalf("lossRuns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(doc, state.Values()["schedule"]); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
	if err := state.Set("schedule", "not a file"); err == nil {
		t.Fatalf("expected error for non attachment")
	}
}
