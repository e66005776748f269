package web_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-quoteforms/internal/quotes"
	"github.com/goliatone/go-quoteforms/internal/web"
	"github.com/goliatone/go-quoteforms/pkg/forms"
	"github.com/goliatone/go-quoteforms/pkg/model"
	htmlrenderer "github.com/goliatone/go-quoteforms/pkg/renderers/html"
	"github.com/goliatone/go-quoteforms/pkg/submit"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

type stack struct {
	server  *httptest.Server
	service *quotes.Service
	client  *http.Client
}

// newStack serves the wizard pages and the quote API from one router, the
// way the serve command wires them.
func newStack(t *testing.T, submitter wizard.Submitter) *stack {
	t.Helper()
	reg, err := forms.Default()
	require.NoError(t, err)
	svc, err := quotes.NewService(reg)
	require.NoError(t, err)
	renderer, err := htmlrenderer.New()
	require.NoError(t, err)

	s := &stack{service: svc}
	if submitter == nil {
		submitter = wizard.SubmitterFunc(func(ctx context.Context, form model.Form, values map[string]any) (submit.Receipt, error) {
			return submit.NewClient(s.server.URL).Submit(ctx, form, values)
		})
	}
	h, err := web.New(reg, renderer, submitter)
	require.NoError(t, err)

	r := chi.NewRouter()
	quotes.Mount(r, svc)
	h.Mount(r)
	s.server = httptest.NewServer(r)
	t.Cleanup(s.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	s.client = &http.Client{Jar: jar}
	return s
}

func (s *stack) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := s.client.Get(s.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (s *stack) post(t *testing.T, path string, values url.Values) (int, string) {
	t.Helper()
	resp, err := s.client.PostForm(s.server.URL+path, values)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func craneApplicant() url.Values {
	return url.Values{
		"step":          {"0"},
		"action":        {"next"},
		"applicantName": {"Lift Masters Inc"},
		"contactPhone":  {"555-987-6543"},
		"contactEmail":  {"ops@liftmasters.test"},
	}
}

func TestIndexListsForms(t *testing.T) {
	s := newStack(t, nil)
	status, body := s.get(t, "/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `href="/quote/crane-riggers"`)
	assert.Contains(t, body, `href="/quote/workers-comp"`)
}

func TestUnknownFormIsNotFound(t *testing.T) {
	s := newStack(t, nil)
	status, _ := s.get(t, "/quote/boats")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWizardSetsSessionCookie(t *testing.T) {
	s := newStack(t, nil)
	resp, err := http.Get(s.server.URL + "/quote/crane-riggers")
	require.NoError(t, err)
	defer resp.Body.Close()
	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == web.CookieName {
			found = c
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, found.SameSite)
}

func TestCraneRiggersWizardEndToEnd(t *testing.T) {
	s := newStack(t, nil)

	status, body := s.get(t, "/quote/crane-riggers")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Step 1 of 3")

	_, body = s.post(t, "/quote/crane-riggers", craneApplicant())
	assert.Contains(t, body, "Step 2 of 3")

	_, body = s.post(t, "/quote/crane-riggers", url.Values{
		"step":        {"1"},
		"action":      {"next"},
		"bareRentals": {"false"},
	})
	assert.Contains(t, body, "Step 3 of 3")

	_, body = s.post(t, "/quote/crane-riggers", url.Values{
		"step":           {"2"},
		"action":         {"submit"},
		"operationTypes": {"", "rigging"},
		"annualRevenue":  {"2500000"},
		"agreeToTerms":   {"false", "true"},
	})
	ref := regexp.MustCompile(`Reference Number: (QR-\d{8}-[0-9A-F]{6})`).FindStringSubmatch(body)
	require.Len(t, ref, 2, body)

	stored, err := s.service.Get(context.Background(), ref[1])
	require.NoError(t, err)
	assert.Equal(t, "crane-riggers", stored.FormID)
	assert.Equal(t, "Lift Masters Inc", stored.Payload["applicantName"])
	assert.Equal(t, []any{"rigging"}, stored.Payload["operationTypes"])

	_, body = s.post(t, "/quote/crane-riggers", url.Values{"action": {"restart"}})
	assert.Contains(t, body, "Step 1 of 3")
	assert.Contains(t, body, `name="applicantName" value=""`)
}

func TestNextShowsInlineErrorsAndKeepsValues(t *testing.T) {
	s := newStack(t, nil)
	values := craneApplicant()
	values.Set("contactPhone", "5559876543")

	_, body := s.post(t, "/quote/crane-riggers", values)
	assert.Contains(t, body, "Step 1 of 3")
	assert.Contains(t, body, "must be in the format 555-555-5555")
	assert.Contains(t, body, `value="Lift Masters Inc"`)
}

func TestRepeatedGroupAddAndRemove(t *testing.T) {
	s := newStack(t, nil)
	s.post(t, "/quote/crane-riggers", craneApplicant())

	_, body := s.post(t, "/quote/crane-riggers", url.Values{"step": {"1"}, "action": {"add:cranes"}})
	assert.Contains(t, body, `name="cranes.0.make"`)
	assert.Contains(t, body, "Crane 1")

	_, body = s.post(t, "/quote/crane-riggers", url.Values{
		"step":                  {"1"},
		"action":                {"add:cranes"},
		"cranes.0.make":         {"Liebherr"},
		"cranes.0.capacityTons": {"40"},
	})
	assert.Contains(t, body, `name="cranes.1.make"`)
	assert.Contains(t, body, `value="Liebherr"`)

	_, body = s.post(t, "/quote/crane-riggers", url.Values{"step": {"1"}, "action": {"remove:cranes:0"}})
	assert.NotContains(t, body, "Liebherr")
	assert.Contains(t, body, `name="cranes.0.make"`)
	assert.NotContains(t, body, `name="cranes.1.make"`)
}

func TestSubmissionFailureShowsRetryBanner(t *testing.T) {
	calls := 0
	s := newStack(t, wizard.SubmitterFunc(func(context.Context, model.Form, map[string]any) (submit.Receipt, error) {
		calls++
		return submit.Receipt{}, errors.New("connection refused")
	}))
	s.post(t, "/quote/crane-riggers", craneApplicant())
	s.post(t, "/quote/crane-riggers", url.Values{"step": {"1"}, "action": {"next"}})

	submitValues := url.Values{
		"step":          {"2"},
		"action":        {"submit"},
		"annualRevenue": {"2500000"},
		"agreeToTerms":  {"false", "true"},
	}
	_, body := s.post(t, "/quote/crane-riggers", submitValues)
	assert.Equal(t, 1, calls)
	assert.Contains(t, body, `role="alert"`)
	assert.Contains(t, body, "Something went wrong while sending your request. Please try again.")
	assert.Contains(t, body, `value="2500000"`)

	_, body = s.post(t, "/quote/crane-riggers", url.Values{"step": {"2"}, "action": {"dismiss"}})
	assert.NotContains(t, body, `role="alert"`)
	assert.Contains(t, body, `value="2500000"`)

	s.post(t, "/quote/crane-riggers", submitValues)
	assert.Equal(t, 2, calls)
}

func TestDuplicateNextDoesNotSkipAStep(t *testing.T) {
	s := newStack(t, nil)

	_, body := s.post(t, "/quote/crane-riggers", craneApplicant())
	require.Contains(t, body, "Step 2 of 3")

	// a second click on the first page's Next button arrives after the move
	status, body := s.post(t, "/quote/crane-riggers", craneApplicant())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Step 2 of 3")
	assert.NotContains(t, body, "Step 3 of 3")

	stale := url.Values{"step": {"0"}, "action": {"submit"}}
	_, body = s.post(t, "/quote/crane-riggers", stale)
	assert.Contains(t, body, "Step 2 of 3")
	stored, err := s.service.List(context.Background(), "crane-riggers")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSubmitOutlivesBrowserDisconnect(t *testing.T) {
	entered := make(chan struct{})
	observed := make(chan error, 1)
	s := newStack(t, wizard.SubmitterFunc(func(ctx context.Context, _ model.Form, _ map[string]any) (submit.Receipt, error) {
		close(entered)
		select {
		case <-ctx.Done():
			observed <- ctx.Err()
			return submit.Receipt{}, ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
		observed <- nil
		return submit.Receipt{ReferenceNumber: "REF-KEPT"}, nil
	}))
	s.post(t, "/quote/crane-riggers", craneApplicant())
	s.post(t, "/quote/crane-riggers", url.Values{"step": {"1"}, "action": {"next"}})

	values := url.Values{
		"step":          {"2"},
		"action":        {"submit"},
		"annualRevenue": {"2500000"},
		"agreeToTerms":  {"false", "true"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.server.URL+"/quote/crane-riggers", strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if resp, err := s.client.Do(req); err == nil {
			resp.Body.Close()
		}
	}()

	<-entered
	cancel()
	<-done

	require.NoError(t, <-observed)
	require.Eventually(t, func() bool {
		_, body := s.get(t, "/quote/crane-riggers")
		return strings.Contains(body, "Reference Number: REF-KEPT")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestUnknownActionIsRejected(t *testing.T) {
	s := newStack(t, nil)
	status, _ := s.post(t, "/quote/crane-riggers", url.Values{"step": {"0"}, "action": {"explode"}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNewRequiresCollaborators(t *testing.T) {
	reg, err := forms.Default()
	require.NoError(t, err)
	renderer, err := htmlrenderer.New()
	require.NoError(t, err)

	_, err = web.New(nil, renderer, wizard.SubmitterFunc(nil))
	assert.Error(t, err)
	_, err = web.New(reg, nil, wizard.SubmitterFunc(nil))
	assert.Error(t, err)
	_, err = web.New(reg, renderer, nil)
	assert.Error(t, err)
}
