package quotes

import (
	"context"
	"sort"
	"sync"
)

// Store persists quote requests.
type Store interface {
	Create(ctx context.Context, quote QuoteRequest) error
	Get(ctx context.Context, reference string) (QuoteRequest, error)
	List(ctx context.Context, formID string) ([]QuoteRequest, error)
	Close() error
}

// MemoryStore keeps quote requests in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	quotes map[string]QuoteRequest
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quotes: make(map[string]QuoteRequest)}
}

func (m *MemoryStore) Create(ctx context.Context, quote QuoteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.quotes[quote.Reference]; exists {
		return ErrDuplicate
	}
	m.quotes[quote.Reference] = quote
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, reference string) (QuoteRequest, error) {
	if err := ctx.Err(); err != nil {
		return QuoteRequest{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	quote, ok := m.quotes[reference]
	if !ok {
		return QuoteRequest{}, ErrNotFound
	}
	return quote, nil
}

// List returns the requests for formID, or every request when formID is
// empty, oldest first.
func (m *MemoryStore) List(ctx context.Context, formID string) ([]QuoteRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]QuoteRequest, 0, len(m.quotes))
	for _, quote := range m.quotes {
		if formID == "" || quote.FormID == formID {
			out = append(out, quote)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Reference < out[j].Reference
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
