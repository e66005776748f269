package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

const defaultSessionTTL = 2 * time.Hour

type sessionEntry struct {
	session *wizard.Session
	touched time.Time
}

// Sessions holds wizard sessions in memory, keyed by browser id and form.
// Idle sessions expire after the TTL; nothing is persisted.
type Sessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*sessionEntry
}

// NewSessions creates a store whose sessions expire after ttl of inactivity.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
	}
}

// NewBrowserID returns a fresh identifier for the session cookie.
func NewBrowserID() string {
	return uuid.NewString()
}

func sessionKey(browserID, formID string) string {
	return browserID + "/" + formID
}

// Get returns the live session for browserID and form, if any.
func (s *Sessions) Get(browserID, formID string) (*wizard.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionKey(browserID, formID)]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(entry.touched) > s.ttl {
		delete(s.entries, sessionKey(browserID, formID))
		return nil, false
	}
	entry.touched = now
	return entry.session, true
}

// GetOrCreate returns the live session or starts a new one.
func (s *Sessions) GetOrCreate(browserID string, form model.Form, opts ...wizard.Option) (*wizard.Session, error) {
	if session, ok := s.Get(browserID, form.ID); ok {
		return session, nil
	}
	session, err := wizard.NewSession(form, opts...)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(browserID, form.ID)
	if entry, ok := s.entries[key]; ok {
		return entry.session, nil
	}
	s.entries[key] = &sessionEntry{session: session, touched: s.now()}
	return session, nil
}

// Drop forgets the session for browserID and form.
func (s *Sessions) Drop(browserID, formID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionKey(browserID, formID))
}

// Sweep removes expired sessions and reports how many were dropped. Sessions
// with a submission in flight are kept.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	dropped := 0
	for key, entry := range s.entries {
		if now.Sub(entry.touched) <= s.ttl || entry.session.Phase() == wizard.PhaseSubmitting {
			continue
		}
		delete(s.entries, key)
		dropped++
	}
	return dropped
}

// Len reports the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
