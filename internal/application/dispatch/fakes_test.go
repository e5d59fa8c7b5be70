package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/campus-push/internal/domain"
)

// memStore is an in-memory record and token store.
type memStore struct {
	mu          sync.Mutex
	records     map[string]*domain.Notification
	tokens      map[string][]string
	recordCalls int
	recordErr   error
	tokensErr   error
	deleted     []string
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*domain.Notification{}, tokens: map[string][]string{}}
}

func (s *memStore) put(n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := n
	s.records[n.NotificationID] = &c
}

func (s *memStore) snapshot(id string) domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[id]
}

func (s *memStore) Get(_ context.Context, id string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	c := *n
	return &c, nil
}

func (s *memStore) RecordDelivery(_ context.Context, id string, u domain.DeliveryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordCalls++
	if s.recordErr != nil {
		return s.recordErr
	}
	n, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n.Sent && !u.Sent {
		return fmt.Errorf("notification %s: %w", id, domain.ErrAlreadySent)
	}
	attempts := n.Attempts + 1
	apply(n, u)
	n.Attempts = attempts
	return nil
}

func (s *memStore) ListPending(_ context.Context, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.records {
		if !n.Sent && !n.PermanentFailure {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListTokens(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokensErr != nil {
		return nil, s.tokensErr
	}
	return append([]string(nil), s.tokens[userID]...), nil
}

func (s *memStore) DeleteToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, userID+"/"+token)
	return nil
}

// fakeTransport records every call. failTokens marks tokens that fail per target.
type fakeTransport struct {
	mu           sync.Mutex
	topicCalls   []string
	tokenCalls   [][]string
	payloads     []*domain.Payload
	failTokens   map[string]string
	unregistered map[string]bool
	callErr      error
}

func (t *fakeTransport) SendToTopic(_ context.Context, topic string, p *domain.Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.topicCalls = append(t.topicCalls, topic)
	t.payloads = append(t.payloads, p)
	return t.callErr
}

func (t *fakeTransport) SendToTokens(_ context.Context, tokens []string, p *domain.Payload) ([]domain.TokenResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokenCalls = append(t.tokenCalls, tokens)
	t.payloads = append(t.payloads, p)
	if t.callErr != nil {
		return nil, t.callErr
	}
	out := make([]domain.TokenResult, len(tokens))
	for i, tok := range tokens {
		if msg, bad := t.failTokens[tok]; bad {
			out[i] = domain.TokenResult{Token: tok, Error: msg, Unregistered: t.unregistered[tok]}
			continue
		}
		out[i] = domain.TokenResult{Token: tok, Success: true}
	}
	return out, nil
}

func (t *fakeTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.topicCalls) + len(t.tokenCalls)
}

type fakeImages struct {
	keys []string
	err  error
}

func (f *fakeImages) UploadImage(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.example/" + key, nil
}

var errNetwork = errors.New("connection reset by peer")
