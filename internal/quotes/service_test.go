package quotes_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-quoteforms/internal/quotes"
	"github.com/goliatone/go-quoteforms/pkg/forms"
)

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func newService(t *testing.T, opts ...quotes.Option) (*quotes.Service, *forms.Registry) {
	t.Helper()
	reg, err := forms.Default()
	require.NoError(t, err)
	opts = append([]quotes.Option{quotes.WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := quotes.NewService(reg, opts...)
	require.NoError(t, err)
	return svc, reg
}

func craneBody() map[string]any {
	return map[string]any{
		"insuranceType":  "crane-riggers",
		"applicantName":  "Lift Masters Inc",
		"contactPhone":   "555-987-6543",
		"contactEmail":   "ops@liftmasters.test",
		"annualRevenue":  "2500000",
		"agreeToTerms":   true,
		"operationTypes": []any{"rigging"},
	}
}

func TestSubmitStoresValidRequest(t *testing.T) {
	svc, reg := newService(t)
	form, err := reg.Get("crane-riggers")
	require.NoError(t, err)

	quote, err := svc.Submit(context.Background(), form, craneBody())
	require.NoError(t, err)
	assert.Regexp(t, `^QR-20240305-[0-9A-F]{6}$`, quote.Reference)
	assert.Equal(t, "crane-riggers", quote.FormID)
	assert.Equal(t, fixedNow, quote.CreatedAt)
	assert.Equal(t, "Lift Masters Inc", quote.Payload["applicantName"])

	stored, err := svc.Get(context.Background(), quote.Reference)
	require.NoError(t, err)
	assert.Equal(t, quote.Reference, stored.Reference)
}

func TestSubmitRejectsInvalidPayloadWithPayloadPaths(t *testing.T) {
	svc, reg := newService(t)
	form, err := reg.Get("restaurants")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), form, map[string]any{
		"type":         "restaurant",
		"businessName": "",
		"contact":      map[string]any{"phone": "5550100101", "email": "hello@bluefin.test"},
		"annualSales":  "900000",
		"agreeToTerms": true,
	})
	var vErr *quotes.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"is required"}, vErr.Fields["businessName"])
	assert.Equal(t, []string{"must be in the format 555-555-5555"}, vErr.Fields["contact.phone"])
	assert.NotContains(t, vErr.Fields, "contact.email")
}

func TestSubmitFlagsUngatedNumberThatCannotBeEncoded(t *testing.T) {
	svc, reg := newService(t)
	form, err := reg.Get("crane-riggers")
	require.NoError(t, err)

	body := craneBody()
	body["maxLiftHeight"] = "very high"
	_, err = svc.Submit(context.Background(), form, body)
	var vErr *quotes.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string][]string{"maxLiftHeight": {"must be a number"}}, vErr.Fields)

	list, err := svc.List(context.Background(), "crane-riggers")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitRunsSubmissionChecks(t *testing.T) {
	svc, reg := newService(t)
	form, err := reg.Get("construction-casualty")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), form, map[string]any{
		"businessName":       "Summit Builders",
		"contactName":        "Lee Park",
		"contactPhone":       "555-222-3333",
		"contactEmail":       "lee@summit.test",
		"contractorType":     "general",
		"residentialPercent": "60",
		"commercialPercent":  "30",
		"annualPayroll":      "1,250,000",
		"annualRevenue":      "4,000,000",
		"agreeToTerms":       true,
	})
	var vErr *quotes.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string][]string{"residentialPercent": {"must total 100%"}}, vErr.Fields)
}

func TestSubmitSanitisesFreeText(t *testing.T) {
	svc, reg := newService(t)
	form, err := reg.Get("crane-riggers")
	require.NoError(t, err)

	body := craneBody()
	body["applicantName"] = `<script>alert(1)</script>Smith & Sons <b>Rigging</b>`
	quote, err := svc.Submit(context.Background(), form, body)
	require.NoError(t, err)
	assert.Equal(t, "Smith & Sons Rigging", quote.Payload["applicantName"])

	body["applicantName"] = "<img src=x>"
	_, err = svc.Submit(context.Background(), form, body)
	var vErr *quotes.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "applicantName")
}

func TestSubmitRecordsAttachments(t *testing.T) {
	svc, reg := newService(t)
	form, err := reg.Get("restaurants")
	require.NoError(t, err)

	quote, err := svc.Submit(context.Background(), form, map[string]any{
		"type":                "restaurant",
		"businessName":        "Blue Fin Bistro",
		"contact":             map[string]any{"phone": "555-010-0101", "email": "hello@bluefin.test"},
		"annualSales":         "900000",
		"alcoholSalesPercent": "0",
		"agreeToTerms":        true,
		"menu":                map[string]any{"fileName": "menu.pdf", "contentType": "application/pdf", "data": "aGk="},
		"lossRuns": []any{
			map[string]any{"fileName": "2023.pdf", "contentType": "application/pdf", "data": "YWJj"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []quotes.AttachmentInfo{
		{Field: "menu", FileName: "menu.pdf", ContentType: "application/pdf", Size: 2},
		{Field: "lossRuns", FileName: "2023.pdf", ContentType: "application/pdf", Size: 3},
	}, quote.Attachments)
}

func TestSubmitRejectsForeignDiscriminator(t *testing.T) {
	svc, reg := newService(t)
	form, err := reg.Get("crane-riggers")
	require.NoError(t, err)

	body := craneBody()
	body["insuranceType"] = "trucking"
	_, err = svc.Submit(context.Background(), form, body)
	var bad *quotes.BadRequestError
	assert.ErrorAs(t, err, &bad)
}

func TestSubmitRetriesDuplicateReferences(t *testing.T) {
	refs := []string{"QR-1", "QR-1", "QR-2"}
	var mu sync.Mutex
	next := func(time.Time) string {
		mu.Lock()
		defer mu.Unlock()
		ref := refs[0]
		refs = refs[1:]
		return ref
	}
	svc, reg := newService(t, quotes.WithReferenceGenerator(next))
	form, err := reg.Get("crane-riggers")
	require.NoError(t, err)

	first, err := svc.Submit(context.Background(), form, craneBody())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), form, craneBody())
	require.NoError(t, err)
	assert.Equal(t, "QR-1", first.Reference)
	assert.Equal(t, "QR-2", second.Reference)
}

func TestSubmitNotifiesObservers(t *testing.T) {
	var got []cloudevents.Event
	notifier := quotes.NewNotifier(nil)
	notifier.Register(quotes.ObserverFunc{ID: "capture", Fn: func(_ context.Context, event cloudevents.Event) error {
		got = append(got, event)
		return nil
	}})
	notifier.Register(quotes.ObserverFunc{ID: "broken", Fn: func(context.Context, cloudevents.Event) error {
		return errors.New("observer down")
	}})

	svc, reg := newService(t, quotes.WithNotifier(notifier))
	form, err := reg.Get("crane-riggers")
	require.NoError(t, err)
	quote, err := svc.Submit(context.Background(), form, craneBody())
	require.NoError(t, err)

	require.Len(t, got, 1)
	event := got[0]
	assert.Equal(t, quotes.EventQuoteCreated, event.Type())
	assert.Equal(t, quote.Reference, event.Subject())
	var data quotes.QuoteCreatedData
	require.NoError(t, event.DataAs(&data))
	assert.Equal(t, "crane-riggers", data.FormID)
}

func TestListFiltersByForm(t *testing.T) {
	svc, reg := newService(t)
	crane, err := reg.Get("crane-riggers")
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), crane, craneBody())
	require.NoError(t, err)

	list, err := svc.List(context.Background(), "crane-riggers")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = svc.List(context.Background(), "trucking")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewServiceNeedsRegistry(t *testing.T) {
	_, err := quotes.NewService(nil)
	assert.Error(t, err)
}
