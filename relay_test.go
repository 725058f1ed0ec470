package lingomark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockProvider is a simple mock for testing
type mockProvider struct {
	translations map[string]string
	callCount    int
	lastReq      TranslateRequest
	err          error
	results      []string // overrides the per-text lookup when set
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		translations: map[string]string{
			"Bonjour":       "Hello",
			"Merci":         "Thank you",
			"Le monde":      "The world",
			"Bonne journée": "Have a good day",
		},
	}
}

func (m *mockProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	m.callCount++
	m.lastReq = req

	if m.err != nil {
		return nil, m.err
	}
	if m.results != nil {
		return m.results, nil
	}

	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if translation, ok := m.translations[text]; ok {
			out[i] = translation
		} else {
			out[i] = "[" + text + "]"
		}
	}
	return out, nil
}

func (m *mockProvider) Name() string { return "mock" }

// mockCache is a simple mock cache for testing. Warm writes concurrently,
// so access is locked.
type mockCache struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (c *mockCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *mockCache) Set(key string, value string) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mockCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *mockCache) get(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key]
}

func (c *mockCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// mockStore is an in-memory CardStore for testing
type mockStore struct {
	recs      []Record
	nextID    int
	insertErr error
}

func (s *mockStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if s.insertErr != nil {
		return Record{}, s.insertErr
	}
	if rec.ID == "" {
		s.nextID++
		rec.ID = fmt.Sprintf("rec-%d", s.nextID)
	}
	s.recs = append(s.recs, rec)
	return rec, nil
}

func (s *mockStore) List(ctx context.Context) ([]Record, error) {
	return append([]Record(nil), s.recs...), nil
}

func (s *mockStore) Delete(ctx context.Context, id string) error {
	for i, rec := range s.recs {
		if rec.ID == id {
			s.recs = append(s.recs[:i], s.recs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *mockStore) DeleteByHost(ctx context.Context, host string) error {
	kept := s.recs[:0]
	for _, rec := range s.recs {
		if HostOf(rec.URL) != host {
			kept = append(kept, rec)
		}
	}
	s.recs = kept
	return nil
}

func (s *mockStore) ReplaceAll(ctx context.Context, recs []Record) error {
	s.recs = append([]Record(nil), recs...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelay_BasicTranslation(t *testing.T) {
	provider := newMockProvider()
	store := &mockStore{}

	relay := NewRelay("en", provider,
		WithStore(store),
		WithLogger(discardLogger()),
	)

	rec, err := relay.Translate(context.Background(), Request{
		Text:    "Bonjour",
		PageURL: "https://lemonde.fr/articles/1",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if rec.Translation != "Hello" {
		t.Errorf("Expected translation 'Hello', got %q", rec.Translation)
	}
	if rec.Original != "Bonjour" {
		t.Errorf("Expected original 'Bonjour', got %q", rec.Original)
	}
	if rec.TargetLang != "en" {
		t.Errorf("Expected target lang 'en', got %q", rec.TargetLang)
	}
	if rec.URL != "https://lemonde.fr/articles/1" {
		t.Errorf("Expected URL to carry over, got %q", rec.URL)
	}
	if rec.ID != "rec-1" {
		t.Errorf("Expected store-assigned id, got %q", rec.ID)
	}
	if rec.Cached {
		t.Error("Fresh translation should not be marked cached")
	}
	if rec.Date.IsZero() {
		t.Error("Record date should be set")
	}
	if len(store.recs) != 1 {
		t.Errorf("Expected 1 stored record, got %d", len(store.recs))
	}
}

func TestRelay_Disabled(t *testing.T) {
	provider := newMockProvider()
	relay := NewRelay("en", provider, WithLogger(discardLogger()))

	relay.SetEnabled(false)

	_, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if !errors.Is(err, ErrRelayDisabled) {
		t.Fatalf("Expected ErrRelayDisabled, got %v", err)
	}
	if provider.callCount != 0 {
		t.Errorf("Provider should not be called while disabled, was called %d times", provider.callCount)
	}

	relay.SetEnabled(true)
	if _, err := relay.Translate(context.Background(), Request{Text: "Bonjour"}); err != nil {
		t.Fatalf("Translate after re-enable failed: %v", err)
	}
}

func TestRelay_EmptyText(t *testing.T) {
	provider := newMockProvider()
	store := &mockStore{}
	relay := NewRelay("en", provider, WithStore(store), WithLogger(discardLogger()))

	rec, err := relay.Translate(context.Background(), Request{Text: "   \n\t  "})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if rec.Original != "" || rec.Translation != "" {
		t.Errorf("Expected empty record for empty text, got %+v", rec)
	}
	if provider.callCount != 0 {
		t.Error("Provider should not be called for empty text")
	}
	if len(store.recs) != 0 {
		t.Error("Nothing should be persisted for empty text")
	}
}

func TestRelay_CacheHitStillPersists(t *testing.T) {
	provider := newMockProvider()
	cache := newMockCache()
	store := &mockStore{}

	relay := NewRelay("en", provider,
		WithCache(cache),
		WithStore(store),
		WithLogger(discardLogger()),
	)

	first, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("First Translate failed: %v", err)
	}
	if first.Cached {
		t.Error("First call should miss the cache")
	}

	second, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("Second Translate failed: %v", err)
	}
	if !second.Cached {
		t.Error("Second call should hit the cache")
	}
	if second.Translation != "Hello" {
		t.Errorf("Expected cached translation 'Hello', got %q", second.Translation)
	}

	// Provider called once, but both highlights become flashcards
	if provider.callCount != 1 {
		t.Errorf("Provider should be called once, was called %d times", provider.callCount)
	}
	if len(store.recs) != 2 {
		t.Errorf("Expected 2 stored records, got %d", len(store.recs))
	}
}

func TestRelay_ProviderFailurePlaceholder(t *testing.T) {
	provider := newMockProvider()
	provider.err = &ProviderError{Provider: "mock", Message: "boom"}
	store := &mockStore{}

	relay := NewRelay("en", provider, WithStore(store), WithLogger(discardLogger()))

	rec, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("Translate should not fail on provider errors, got %v", err)
	}

	if rec.Translation != "[translation failed] Bonjour" {
		t.Errorf("Expected placeholder translation, got %q", rec.Translation)
	}
	if len(store.recs) != 1 {
		t.Errorf("Placeholder record should still be persisted, got %d records", len(store.recs))
	}
}

func TestRelay_CountMismatch(t *testing.T) {
	provider := newMockProvider()
	provider.results = []string{"Hello", "extra"}

	relay := NewRelay("en", provider, WithLogger(discardLogger()))

	rec, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !strings.HasPrefix(rec.Translation, "[translation failed] ") {
		t.Errorf("Mismatched result count should produce a placeholder, got %q", rec.Translation)
	}
}

func TestRelay_StoreFailureKeepsTranslation(t *testing.T) {
	provider := newMockProvider()
	store := &mockStore{insertErr: &StoreError{Op: "insert", Message: "disk full"}}

	relay := NewRelay("en", provider, WithStore(store), WithLogger(discardLogger()))

	rec, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err == nil {
		t.Fatal("Expected an error when the store rejects the record")
	}
	if rec.Translation != "Hello" {
		t.Errorf("Translation should survive a store failure, got %q", rec.Translation)
	}

	var serr *StoreError
	if !errors.As(err, &serr) {
		t.Errorf("Expected StoreError, got %T", err)
	}
}

func TestRelay_TargetOverride(t *testing.T) {
	provider := newMockProvider()
	relay := NewRelay("en", provider, WithLogger(discardLogger()))

	rec, err := relay.Translate(context.Background(), Request{Text: "Hello", TargetLang: "DE"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if rec.TargetLang != "de" {
		t.Errorf("Expected normalized target 'de', got %q", rec.TargetLang)
	}
	if provider.lastReq.TargetLang != "de" {
		t.Errorf("Provider should see the override, got %q", provider.lastReq.TargetLang)
	}

	rec, err = relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if rec.TargetLang != "en" {
		t.Errorf("Expected relay default 'en', got %q", rec.TargetLang)
	}
}

func TestRelay_CacheSetFailureIsNonFatal(t *testing.T) {
	provider := newMockProvider()
	cache := newMockCache()
	cache.setErr = &CacheError{Message: "connection refused"}

	relay := NewRelay("en", provider, WithCache(cache), WithLogger(discardLogger()))

	rec, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if rec.Translation != "Hello" {
		t.Errorf("Expected translation despite cache failure, got %q", rec.Translation)
	}
}

func TestRelay_ContextPassedThrough(t *testing.T) {
	provider := newMockProvider()
	relay := NewRelay("en", provider, WithSourceLang("fr"), WithLogger(discardLogger()))

	_, err := relay.Translate(context.Background(), Request{
		Text:    "Bonjour",
		Context: "Bonjour, comment allez-vous ?",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if provider.lastReq.Context != "Bonjour, comment allez-vous ?" {
		t.Errorf("Provider should see the surrounding passage, got %q", provider.lastReq.Context)
	}
	if provider.lastReq.SourceLang != "fr" {
		t.Errorf("Provider should see the source language, got %q", provider.lastReq.SourceLang)
	}
	if len(provider.lastReq.Texts) != 1 || provider.lastReq.Texts[0] != "Bonjour" {
		t.Errorf("Provider should receive exactly the trimmed text, got %v", provider.lastReq.Texts)
	}
}

func TestRelay_FixedClock(t *testing.T) {
	fixed := time.Date(2026, 8, 20, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	provider := newMockProvider()

	relay := NewRelay("en", provider,
		WithClock(func() time.Time { return fixed }),
		WithLogger(discardLogger()),
	)

	rec, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	want := fixed.UTC()
	if !rec.Date.Equal(want) {
		t.Errorf("Expected record date %v, got %v", want, rec.Date)
	}
	if rec.Date.Location() != time.UTC {
		t.Errorf("Record dates should be UTC, got %v", rec.Date.Location())
	}
}

func TestRelay_NoStore(t *testing.T) {
	provider := newMockProvider()
	relay := NewRelay("en", provider, WithLogger(discardLogger()))

	rec, err := relay.Translate(context.Background(), Request{Text: "Bonjour"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if rec.ID != "" {
		t.Errorf("Expected no id without a store, got %q", rec.ID)
	}
	if rec.Translation != "Hello" {
		t.Errorf("Expected translation 'Hello', got %q", rec.Translation)
	}
}

func TestRelay_Accessors(t *testing.T) {
	provider := newMockProvider()
	store := &mockStore{}
	relay := NewRelay("EN", provider,
		WithStore(store),
		WithSourceLang("fr"),
		WithLogger(discardLogger()),
	)

	if relay.TargetLang() != "en" {
		t.Errorf("Expected normalized target 'en', got %q", relay.TargetLang())
	}
	if relay.SourceLang() != "fr" {
		t.Errorf("Expected source 'fr', got %q", relay.SourceLang())
	}
	if relay.Store() != CardStore(store) {
		t.Error("Store accessor should return the configured store")
	}
	if !relay.Enabled() {
		t.Error("Relay should start enabled")
	}

	relay.SetTargetLang("DE")
	if relay.TargetLang() != "de" {
		t.Errorf("Expected normalized target 'de', got %q", relay.TargetLang())
	}
}
