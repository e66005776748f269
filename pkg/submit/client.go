package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/render"
)

const maxResponseBytes = 1 << 20

// ErrMissingReference is wrapped by *Error when a reference-mode route answers
// 2xx without a reference number.
var ErrMissingReference = errors.New("submit: response has no referenceNumber")

// Receipt is the successful outcome of a submission.
type Receipt struct {
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	Acknowledged    bool   `json:"acknowledged,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Error describes a failed submission. Every failure is treated as retryable by
// the caller; StatusCode is zero when the request never got a response.
type Error struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
	Form       []string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidValues):
		paths := make([]string, 0, len(e.Fields))
		for path := range e.Fields {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		return fmt.Sprintf("%v: %s", e.Err, strings.Join(paths, ", "))
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("submit: request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("submit: status %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("submit: status %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("submit: status %d", e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHeader adds a static header to every request.
func WithHeader(name, value string) Option {
	return func(c *Client) {
		c.headers.Set(name, value)
	}
}

// Client posts quote requests to the backend. It issues exactly one request
// per Submit call and never retries.
type Client struct {
	baseURL string
	http    *http.Client
	headers http.Header
	logger  *zap.Logger
}

// NewClient returns a client rooted at baseURL (for example
// `http://localhost:8080`). Form routes are appended to it.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		headers: make(http.Header),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type responseBody struct {
	ReferenceNumber string              `json:"referenceNumber"`
	Message         string              `json:"message"`
	Error           string              `json:"error"`
	Errors          map[string][]string `json:"errors"`
}

// Submit posts the projected payload to the form's route.
func (c *Client) Submit(ctx context.Context, form model.Form, values map[string]any) (Receipt, error) {
	payload, err := BuildPayload(form, values)
	if err != nil {
		return Receipt{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: encode payload: %w", err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(form.Route, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, vals := range c.headers {
		for _, v := range vals {
			req.Header.Add(name, v)
		}
	}

	log := c.logger.With(zap.String("form", form.ID), zap.String("url", url))
	log.Debug("submitting quote request", zap.Int("bytes", len(body)))

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("quote request failed", zap.Error(err))
		return Receipt{}, &Error{Err: err, Message: "We could not reach the server. Please try again."}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Receipt{}, &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	var decoded responseBody
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < 300 && form.Mode() == model.ResponseReference {
			return Receipt{}, &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		mapped := render.MapErrorPayload(form, decoded.Errors, Aliases(form))
		message := firstNonEmpty(decoded.Message, decoded.Error, http.StatusText(resp.StatusCode))
		log.Info("quote request rejected", zap.Int("status", resp.StatusCode), zap.Int("field_errors", len(mapped.Fields)))
		return Receipt{}, &Error{
			StatusCode: resp.StatusCode,
			Message:    message,
			Fields:     mapped.Fields,
			Form:       mapped.Form,
		}
	}

	if form.Mode() == model.ResponseAcknowledgement {
		log.Info("quote request acknowledged", zap.Int("status", resp.StatusCode))
		return Receipt{Acknowledged: true, ReferenceNumber: decoded.ReferenceNumber, Message: decoded.Message}, nil
	}
	if strings.TrimSpace(decoded.ReferenceNumber) == "" {
		return Receipt{}, &Error{StatusCode: resp.StatusCode, Err: ErrMissingReference}
	}
	log.Info("quote request accepted", zap.String("reference", decoded.ReferenceNumber))
	return Receipt{ReferenceNumber: decoded.ReferenceNumber, Message: decoded.Message}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
