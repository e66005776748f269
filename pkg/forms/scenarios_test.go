package forms_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-quoteforms/pkg/forms"
	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/submit"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

func newSession(t *testing.T, id string, opts ...wizard.Option) *wizard.Session {
	t.Helper()
	reg, err := forms.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	form, err := reg.Get(id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	s, err := wizard.NewSession(form, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func mustSet(t *testing.T, s *wizard.Session, values map[string]any) {
	t.Helper()
	if err := s.SetMany(values); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
}

func mustNext(t *testing.T, s *wizard.Session) {
	t.Helper()
	if err := s.Next(); err != nil {
		t.Fatalf("Next from step %d: %v (errors %v)", s.Step(), err, s.FieldErrors())
	}
}

func TestCommercialPropertyRejectsMalformedPhone(t *testing.T) {
	s := newSession(t, "commercial-property")
	mustSet(t, s, map[string]any{
		"applicantName":         "Harbor Storage LLC",
		"riskManagementContact": "Dana Ortiz",
		"contactPhone":          "5551234567",
		"contactEmail":          "dana@harbor.test",
	})

	err := s.Next()
	var vErr *wizard.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string][]string{"contactPhone": {"must be in the format 555-555-5555"}}
	if diff := cmp.Diff(want, s.FieldErrors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if s.Step() != 0 {
		t.Fatalf("step advanced to %d", s.Step())
	}

	mustSet(t, s, map[string]any{"contactPhone": "555-123-4567"})
	mustNext(t, s)
	if s.Step() != 1 {
		t.Fatalf("expected step 1, got %d", s.Step())
	}
}

func TestCommercialPropertySprinklerChain(t *testing.T) {
	s := newSession(t, "commercial-property")
	mustSet(t, s, map[string]any{
		"applicantName": "Harbor", "riskManagementContact": "Dana",
		"contactPhone": "555-123-4567", "contactEmail": "dana@harbor.test",
	})
	mustNext(t, s)
	mustSet(t, s, map[string]any{"constructionType": "frame", "yearBuilt": "1988"})
	mustNext(t, s)

	mustSet(t, s, map[string]any{"sprinklered": true, "sprinklerType": "wet", "protectionClass": "3"})
	visible, err := s.Visible()
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if diff := cmp.Diff([]string{"sprinklered", "sprinklerType", "sprinklerCoverageAreas", "protectionClass", "alarmType"}, visible); diff != "" {
		t.Fatalf("visible mismatch (-want +got):\n%s", diff)
	}
	if err := s.Next(); err == nil {
		t.Fatalf("expected coverage areas to be required once visible")
	}

	mustSet(t, s, map[string]any{"sprinklered": false})
	visible, err = s.Visible()
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if diff := cmp.Diff([]string{"sprinklered", "protectionClass", "alarmType"}, visible); diff != "" {
		t.Fatalf("visible mismatch (-want +got):\n%s", diff)
	}
	mustNext(t, s)
}

func fillConstruction(t *testing.T, s *wizard.Session, residential, commercial string) {
	t.Helper()
	mustSet(t, s, map[string]any{
		"applicantName": "Summit Builders", "contactName": "Lee Park",
		"contactPhone": "555-222-3333", "contactEmail": "lee@summit.test",
	})
	mustNext(t, s)
	mustSet(t, s, map[string]any{
		"contractorType":     "general",
		"residentialPercent": residential,
		"commercialPercent":  commercial,
	})
	mustNext(t, s)
	mustNext(t, s)
	mustSet(t, s, map[string]any{
		"annualPayroll": "1,250,000",
		"annualRevenue": "$4,000,000",
		"agreeToTerms":  true,
	})
}

func TestConstructionCasualtyPercentagesMustTotal100(t *testing.T) {
	calls := 0
	submitter := wizard.SubmitterFunc(func(context.Context, model.Form, map[string]any) (submit.Receipt, error) {
		calls++
		return submit.Receipt{ReferenceNumber: "QR-1"}, nil
	})
	s := newSession(t, "construction-casualty", wizard.WithSubmitter(submitter))
	fillConstruction(t, s, "60", "30")

	_, err := s.Submit(context.Background())
	var vErr *wizard.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string][]string{"residentialPercent": {"must total 100%"}}
	if diff := cmp.Diff(want, vErr.Fields()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if calls != 0 {
		t.Fatalf("submission must be blocked")
	}
	if s.Phase() != wizard.PhaseEditing {
		t.Fatalf("expected editing, got %s", s.Phase())
	}

	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	mustSet(t, s, map[string]any{"commercialPercent": "40"})
	mustNext(t, s)
	mustNext(t, s)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestConstructionCasualtyConditionalDescription(t *testing.T) {
	s := newSession(t, "construction-casualty")
	fillConstruction(t, s, "50", "50")
	mustSet(t, s, map[string]any{"awareOfCircumstances": true})

	if err := s.Next(); err == nil {
		t.Fatalf("expected circumstances description to be required")
	}
	if _, ok := s.FieldErrors()["circumstancesDescription"]; !ok {
		t.Fatalf("expected error on circumstancesDescription, got %v", s.FieldErrors())
	}
	mustSet(t, s, map[string]any{"awareOfCircumstances": false})
	if err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
}

func TestWorkersCompRemoveFirstClassification(t *testing.T) {
	s := newSession(t, "workers-comp")
	mustSet(t, s, map[string]any{
		"applicantName": "Northwind Plumbing", "contactPhone": "555-444-1212",
		"contactEmail": "hr@northwind.test", "state": "OR",
	})
	mustNext(t, s)

	rows := []map[string]any{
		{"classCode": "5183", "description": "Plumbing", "employees": "12", "annualPayroll": "720000"},
		{"classCode": "8810", "description": "Clerical", "employees": "3", "annualPayroll": "150000"},
	}
	for i, row := range rows {
		idx, err := s.AppendItem("classifications")
		if err != nil {
			t.Fatalf("AppendItem: %v", err)
		}
		if idx != i {
			t.Fatalf("expected index %d, got %d", i, idx)
		}
		for key, value := range row {
			if err := s.Set("classifications."+strconv.Itoa(idx)+"."+key, value); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
	}

	if err := s.RemoveItem("classifications", 0); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	want := []any{map[string]any{
		"classCode": "8810", "description": "Clerical", "employees": "3", "annualPayroll": "150000",
	}}
	if diff := cmp.Diff(want, s.Values()["classifications"]); diff != "" {
		t.Fatalf("classifications mismatch (-want +got):\n%s", diff)
	}
	mustNext(t, s)
}

func TestCraneRiggersEndToEndReference(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quotes/crane-riggers" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"referenceNumber":"REF123"}`))
	}))
	defer srv.Close()

	s := newSession(t, "crane-riggers", wizard.WithSubmitter(submit.NewClient(srv.URL)))
	mustSet(t, s, map[string]any{
		"applicantName": "Lift Masters Inc", "contactPhone": "555-987-6543", "contactEmail": "ops@liftmasters.test",
	})
	mustNext(t, s)
	mustNext(t, s)
	mustSet(t, s, map[string]any{"annualRevenue": "2500000", "agreeToTerms": true})

	receipt, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.ReferenceNumber != "REF123" {
		t.Fatalf("expected REF123, got %+v", receipt)
	}
	if body["insuranceType"] != "crane-riggers" || body["applicantName"] != "Lift Masters Inc" {
		t.Fatalf("unexpected payload %v", body)
	}
	if s.Phase() != wizard.PhaseSubmitted {
		t.Fatalf("expected submitted, got %s", s.Phase())
	}
}

func TestRestaurantAcknowledgementPayloadShape(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := newSession(t, "restaurants", wizard.WithSubmitter(submit.NewClient(srv.URL)))
	mustSet(t, s, map[string]any{
		"applicantName": "Blue Fin Bistro", "contactPhone": "555-010-0101", "contactEmail": "hello@bluefin.test",
	})
	mustNext(t, s)
	mustSet(t, s, map[string]any{"annualSales": "900000", "alcoholSalesPercent": "25"})
	mustNext(t, s)
	mustSet(t, s, map[string]any{
		"agreeToTerms": true,
		"menu":         model.Attachment{Name: "menu.pdf", ContentType: "application/pdf", Size: 2, Data: []byte("hi")},
	})

	receipt, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !receipt.Acknowledged {
		t.Fatalf("expected acknowledgement, got %+v", receipt)
	}
	if body["type"] != "restaurant" || body["businessName"] != "Blue Fin Bistro" {
		t.Fatalf("unexpected payload %v", body)
	}
	contact, _ := body["contact"].(map[string]any)
	if contact["phone"] != "555-010-0101" || contact["email"] != "hello@bluefin.test" {
		t.Fatalf("unexpected contact block %v", body["contact"])
	}
	menu, _ := body["menu"].(map[string]any)
	if menu["fileName"] != "menu.pdf" || menu["data"] != "aGk=" {
		t.Fatalf("unexpected attachment %v", body["menu"])
	}
}

func TestSubmissionFailureKeepsStateForRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"referenceNumber":"REF456"}`))
	}))
	defer srv.Close()

	s := newSession(t, "crane-riggers", wizard.WithSubmitter(submit.NewClient(srv.URL)))
	mustSet(t, s, map[string]any{
		"applicantName": "Lift Masters Inc", "contactPhone": "555-987-6543", "contactEmail": "ops@liftmasters.test",
	})
	mustNext(t, s)
	mustNext(t, s)
	mustSet(t, s, map[string]any{"annualRevenue": "2500000", "agreeToTerms": true})

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatalf("expected first submission to fail")
	}
	if s.Values()["applicantName"] != "Lift Masters Inc" || s.Step() != 2 {
		t.Fatalf("state or step lost after failure")
	}
	receipt, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if receipt.ReferenceNumber != "REF456" || attempts != 2 {
		t.Fatalf("unexpected retry outcome %+v after %d attempts", receipt, attempts)
	}
}

func TestCommercialPropertyUngatedNumberIsFlaggedNotSent(t *testing.T) {
	var posted []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		posted = append(posted, body)
		_, _ = w.Write([]byte(`{"referenceNumber":"REF789"}`))
	}))
	defer srv.Close()

	s := newSession(t, "commercial-property", wizard.WithSubmitter(submit.NewClient(srv.URL)))
	mustSet(t, s, map[string]any{
		"applicantName": "Harbor", "riskManagementContact": "Dana",
		"contactPhone": "555-123-4567", "contactEmail": "dana@harbor.test",
	})
	mustNext(t, s)
	mustSet(t, s, map[string]any{"constructionType": "frame", "yearBuilt": "1988", "stories": "three"})
	mustNext(t, s)
	mustSet(t, s, map[string]any{"protectionClass": "3"})
	mustNext(t, s)
	mustSet(t, s, map[string]any{"buildingValue": "$1,200,000", "effectiveDate": "2025-01-01", "agreeToTerms": true})

	for attempt := 1; attempt <= 2; attempt++ {
		_, err := s.Submit(context.Background())
		if !errors.Is(err, submit.ErrInvalidValues) {
			t.Fatalf("attempt %d: expected invalid values error, got %v", attempt, err)
		}
		want := map[string][]string{"stories": {"must be a number"}}
		if diff := cmp.Diff(want, s.FieldErrors()); diff != "" {
			t.Fatalf("attempt %d: errors mismatch (-want +got):\n%s", attempt, diff)
		}
		if got := wizard.FailureMessage(s.LastError()); got != "Please correct the highlighted fields." {
			t.Fatalf("attempt %d: unexpected banner %q", attempt, got)
		}
		if s.Phase() != wizard.PhaseEditing || len(posted) != 0 {
			t.Fatalf("attempt %d: phase %s after %d requests", attempt, s.Phase(), len(posted))
		}
	}

	mustSet(t, s, map[string]any{"stories": "3"})
	if _, ok := s.FieldErrors()["stories"]; ok {
		t.Fatalf("correcting the field should clear its error")
	}
	receipt, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit after correction: %v", err)
	}
	if receipt.ReferenceNumber != "REF789" || len(posted) != 1 {
		t.Fatalf("unexpected outcome %+v after %d requests", receipt, len(posted))
	}
	if posted[0]["stories"] != float64(3) {
		t.Fatalf("stories sent as %v", posted[0]["stories"])
	}
}
