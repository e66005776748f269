package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventQuoteCreated = "com.quoteforms.quote.created"
	EventSource       = "quoteforms/quotes"
)

// Observer receives quote lifecycle events.
type Observer interface {
	OnEvent(ctx context.Context, event cloudevents.Event) error
	ObserverID() string
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc struct {
	ID string
	Fn func(ctx context.Context, event cloudevents.Event) error
}

func (o ObserverFunc) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return o.Fn(ctx, event)
}

func (o ObserverFunc) ObserverID() string { return o.ID }

// QuoteCreatedData is the event payload for EventQuoteCreated.
type QuoteCreatedData struct {
	Reference     string    `json:"referenceNumber"`
	FormID        string    `json:"formId"`
	InsuranceType string    `json:"insuranceType,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Attachments   int       `json:"attachments"`
}

// NewQuoteCreatedEvent builds the CloudEvent announcing quote.
func NewQuoteCreatedEvent(quote QuoteRequest) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	event.SetID(id.String())
	event.SetSource(EventSource)
	event.SetType(EventQuoteCreated)
	event.SetSubject(quote.Reference)
	event.SetTime(quote.CreatedAt)
	event.SetSpecVersion(cloudevents.VersionV1)
	err = event.SetData(cloudevents.ApplicationJSON, QuoteCreatedData{
		Reference:     quote.Reference,
		FormID:        quote.FormID,
		InsuranceType: quote.InsuranceType,
		CreatedAt:     quote.CreatedAt,
		Attachments:   len(quote.Attachments),
	})
	if err != nil {
		return cloudevents.Event{}, fmt.Errorf("quotes: event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return cloudevents.Event{}, fmt.Errorf("quotes: event: %w", err)
	}
	return event, nil
}

// Notifier fans events out to registered observers. Observer failures are
// logged and never fail the submission that produced the event.
type Notifier struct {
	mu        sync.RWMutex
	observers map[string]Observer
	logger    *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{observers: make(map[string]Observer), logger: logger}
}

// Register adds observer, replacing any observer with the same id.
func (n *Notifier) Register(observer Observer) {
	if observer == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers[observer.ObserverID()] = observer
}

func (n *Notifier) Unregister(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

// Notify delivers event to every observer in turn.
func (n *Notifier) Notify(ctx context.Context, event cloudevents.Event) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.observers))
	for _, observer := range n.observers {
		observers = append(observers, observer)
	}
	n.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.OnEvent(ctx, event); err != nil {
			n.logger.Warn("observer failed",
				zap.String("observer", observer.ObserverID()),
				zap.String("event", event.Type()),
				zap.Error(err))
		}
	}
}

// LogObserver records every event at info level.
type LogObserver struct {
	Logger *zap.Logger
}

func (o LogObserver) OnEvent(_ context.Context, event cloudevents.Event) error {
	o.Logger.Info("quote event",
		zap.String("type", event.Type()),
		zap.String("id", event.ID()),
		zap.String("subject", event.Subject()))
	return nil
}

func (o LogObserver) ObserverID() string { return "log" }
