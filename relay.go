package lingomark

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// failedPrefix marks translations that could not be produced because the
// provider call failed. The failure is surfaced inline in the translation
// field rather than as an error to the caller.
const failedPrefix = "[translation failed] "

// MockPrefix marks translations produced without a configured API
// credential. The mock provider prepends it to the original text.
const MockPrefix = "[mock] "

// Relay is the translation relay: it resolves a highlighted text to a
// translation through the cache and provider, and persists the result as a
// flashcard record.
type Relay struct {
	targetLang string
	sourceLang string
	provider   Provider
	cache      TranslationCache
	store      CardStore
	logger     *slog.Logger
	now        func() time.Time
	enabled    atomic.Bool
	mu         sync.RWMutex // guards targetLang
}

// RelayOption is a functional option for configuring the Relay.
type RelayOption func(*Relay)

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) RelayOption {
	return func(r *Relay) {
		r.cache = cache
	}
}

// WithStore sets the flashcard store.
func WithStore(store CardStore) RelayOption {
	return func(r *Relay) {
		r.store = store
	}
}

// WithSourceLang sets the source language recorded on flashcards and passed
// to the provider.
func WithSourceLang(lang string) RelayOption {
	return func(r *Relay) {
		r.sourceLang = lang
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used to date records.
func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRelay creates a Relay with the given default target language and
// provider. The relay starts enabled.
func NewRelay(targetLang string, provider Provider, opts ...RelayOption) *Relay {
	r := &Relay{
		targetLang: NormalizeTarget(targetLang),
		provider:   provider,
		logger:     slog.Default(),
		now:        time.Now,
	}
	r.enabled.Store(true)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Translate resolves a single request to a flashcard record.
//
// The cache key is derived from the trimmed text and the lowercased target
// language. A cache hit still persists a record, so repeated highlights keep
// minting flashcards. On a miss the provider is called exactly once; a
// provider failure is logged and surfaced as a placeholder in the
// translation field, never as an error. Empty text short-circuits to an
// empty result with no cache or store activity.
//
// A non-nil error alongside a populated record means the translation
// succeeded but persisting it did not.
func (r *Relay) Translate(ctx context.Context, req Request) (Record, error) {
	if !r.Enabled() {
		return Record{}, ErrRelayDisabled
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Record{}, nil
	}

	target := NormalizeTarget(req.TargetLang)
	if target == "" {
		target = r.TargetLang()
	}

	rec := Record{
		Original:   text,
		Date:       r.now().UTC(),
		URL:        req.PageURL,
		SourceLang: r.sourceLang,
		TargetLang: target,
	}

	key := CacheKey(HashText(text), target)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			rec.Translation = cached
			rec.Cached = true
			return r.persist(ctx, rec)
		}
	}

	translation, err := r.translateOne(ctx, text, target, req.Context)
	if err != nil {
		r.logger.Error("translation failed",
			"provider", r.providerName(),
			"target_lang", target,
			"error", err,
		)
		rec.Translation = failedPrefix + text
		return r.persist(ctx, rec)
	}

	rec.Translation = translation
	if r.cache != nil {
		if cerr := r.cache.Set(key, translation); cerr != nil {
			r.logger.Warn("cache set failed", "error", cerr)
		}
	}

	return r.persist(ctx, rec)
}

// translateOne calls the provider for a single text.
func (r *Relay) translateOne(ctx context.Context, text, target, passage string) (string, error) {
	if r.provider == nil {
		return "", &ProviderError{Message: "no provider configured"}
	}

	results, err := r.provider.Translate(ctx, TranslateRequest{
		Texts:      []string{text},
		TargetLang: target,
		SourceLang: r.sourceLang,
		Context:    passage,
	})
	if err != nil {
		return "", err
	}
	if len(results) != 1 {
		return "", &CountMismatchError{Expected: 1, Got: len(results)}
	}

	return results[0], nil
}

// persist appends the record to the store, if one is configured. Store
// failures do not discard the translation.
func (r *Relay) persist(ctx context.Context, rec Record) (Record, error) {
	if r.store == nil {
		return rec, nil
	}

	saved, err := r.store.Insert(ctx, rec)
	if err != nil {
		r.logger.Warn("record insert failed", "error", err)
		return rec, err
	}
	return saved, nil
}

func (r *Relay) providerName() string {
	if r.provider == nil {
		return "none"
	}
	return r.provider.Name()
}

// Enabled reports whether the relay accepts translation requests.
func (r *Relay) Enabled() bool {
	return r.enabled.Load()
}

// SetEnabled toggles the relay. While disabled, every Translate call
// returns ErrRelayDisabled.
func (r *Relay) SetEnabled(on bool) {
	r.enabled.Store(on)
}

// TargetLang returns the current default target language.
func (r *Relay) TargetLang() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.targetLang
}

// SetTargetLang changes the default target language for future requests.
func (r *Relay) SetTargetLang(lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targetLang = NormalizeTarget(lang)
}

// SourceLang returns the source language.
func (r *Relay) SourceLang() string {
	return r.sourceLang
}

// Store returns the configured flashcard store, or nil.
func (r *Relay) Store() CardStore {
	return r.store
}
