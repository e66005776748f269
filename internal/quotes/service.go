package quotes

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-quoteforms/pkg/forms"
	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/submit"
	"github.com/goliatone/go-quoteforms/pkg/visibility"
	"github.com/goliatone/go-quoteforms/pkg/visibility/expr"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

const referenceAttempts = 3

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// Option configures a Service.
type Option func(*Service)

func WithStore(store Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithNotifier(notifier *Notifier) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(s *Service) {
		if evaluator != nil {
			s.evaluator = evaluator
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithReferenceGenerator overrides reference number generation.
func WithReferenceGenerator(fn func(time.Time) string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newReference = fn
		}
	}
}

// Service accepts quote requests for the forms in a registry.
type Service struct {
	registry     *forms.Registry
	store        Store
	notifier     *Notifier
	evaluator    visibility.Evaluator
	logger       *zap.Logger
	now          func() time.Time
	newReference func(time.Time) string
}

func NewService(registry *forms.Registry, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("quotes: registry is required")
	}
	s := &Service{
		registry:     registry,
		store:        NewMemoryStore(),
		evaluator:    expr.New(),
		logger:       zap.NewNop(),
		now:          time.Now,
		newReference: NewReference,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.notifier == nil {
		s.notifier = NewNotifier(s.logger)
	}
	return s, nil
}

func (s *Service) Registry() *forms.Registry { return s.registry }

func (s *Service) Notifier() *Notifier { return s.notifier }

// NewReference formats a reference number such as QR-20240131-9F2C1A.
func NewReference(at time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("QR-%s-%X", at.UTC().Format("20060102"), id[:3])
}

// Submit validates body against the form and stores it. Validation failures
// are returned as *ValidationError keyed by payload path.
func (s *Service) Submit(ctx context.Context, form model.Form, body map[string]any) (QuoteRequest, error) {
	values, err := submit.DecodePayload(form, body)
	if err != nil {
		return QuoteRequest{}, &BadRequestError{Err: err}
	}
	sanitizeValues(form.Fields(), values)

	validator, err := wizard.NewValidator(form, s.evaluator)
	if err != nil {
		return QuoteRequest{}, fmt.Errorf("quotes: %s: %w", form.ID, err)
	}
	if result := validator.ValidateAll(values); !result.Valid {
		fields := make(map[string][]string)
		for path, messages := range result.Errors() {
			key := submit.PayloadPath(form, path)
			fields[key] = append(fields[key], messages...)
		}
		s.logger.Info("quote request rejected", zap.String("form", form.ID), zap.Int("issues", len(result.Issues)))
		return QuoteRequest{}, &ValidationError{Message: "validation failed", Fields: fields}
	}

	payload, err := submit.BuildPayload(form, values)
	if err != nil {
		var invalid *submit.Error
		if errors.As(err, &invalid) && len(invalid.Fields) > 0 {
			fields := make(map[string][]string, len(invalid.Fields))
			for path, messages := range invalid.Fields {
				key := submit.PayloadPath(form, path)
				fields[key] = append(fields[key], messages...)
			}
			return QuoteRequest{}, &ValidationError{Message: "validation failed", Fields: fields}
		}
		return QuoteRequest{}, &BadRequestError{Err: err}
	}

	quote := QuoteRequest{
		FormID:        form.ID,
		InsuranceType: form.InsuranceType,
		CreatedAt:     s.now().UTC(),
		Payload:       payload,
		Attachments:   attachmentInfo(form.Fields(), values),
	}
	for attempt := 0; ; attempt++ {
		quote.Reference = s.newReference(quote.CreatedAt)
		err = s.store.Create(ctx, quote)
		if !errors.Is(err, ErrDuplicate) || attempt+1 >= referenceAttempts {
			break
		}
	}
	if err != nil {
		return QuoteRequest{}, err
	}
	s.logger.Info("quote request stored",
		zap.String("form", form.ID),
		zap.String("reference", quote.Reference),
		zap.Int("attachments", len(quote.Attachments)))

	event, err := NewQuoteCreatedEvent(quote)
	if err != nil {
		s.logger.Warn("quote event not built", zap.Error(err))
	} else {
		s.notifier.Notify(ctx, event)
	}
	return quote, nil
}

func (s *Service) Get(ctx context.Context, reference string) (QuoteRequest, error) {
	return s.store.Get(ctx, reference)
}

func (s *Service) List(ctx context.Context, formID string) ([]QuoteRequest, error) {
	return s.store.List(ctx, formID)
}

func sanitizeValues(fields []model.Field, values map[string]any) {
	for _, field := range fields {
		raw, ok := values[field.Name]
		if !ok {
			continue
		}
		switch field.Type {
		case model.FieldTypeText, model.FieldTypeTextArea:
			if text, ok := raw.(string); ok {
				values[field.Name] = sanitizeText(text)
			}
		case model.FieldTypeGroup:
			records, _ := raw.([]any)
			for _, record := range records {
				if obj, ok := record.(map[string]any); ok {
					sanitizeValues(field.Item, obj)
				}
			}
		}
	}
}

// sanitizeText strips markup and leaves plain text.
func sanitizeText(text string) string {
	cleaned := strictPolicy().Sanitize(text)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func attachmentInfo(fields []model.Field, values map[string]any) []AttachmentInfo {
	var out []AttachmentInfo
	add := func(name string, raw any) {
		switch v := raw.(type) {
		case model.Attachment:
			out = append(out, AttachmentInfo{Field: name, FileName: v.Name, ContentType: v.ContentType, Size: v.Size})
		case []any:
			for _, item := range v {
				if a, ok := item.(model.Attachment); ok {
					out = append(out, AttachmentInfo{Field: name, FileName: a.Name, ContentType: a.ContentType, Size: a.Size})
				}
			}
		}
	}
	for _, field := range fields {
		switch field.Type {
		case model.FieldTypeFile:
			add(field.Name, values[field.Name])
		case model.FieldTypeGroup:
			records, _ := values[field.Name].([]any)
			for idx, record := range records {
				obj, _ := record.(map[string]any)
				for _, item := range field.Item {
					if item.Type == model.FieldTypeFile {
						add(fmt.Sprintf("%s.%d.%s", field.Name, idx, item.Name), obj[item.Name])
					}
				}
			}
		}
	}
	return out
}
