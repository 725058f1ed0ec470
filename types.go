package lingomark

import (
	"context"
	"time"
)

// Request is a single translation request coming from a page.
type Request struct {
	// Text is the highlighted text to translate.
	Text string `json:"text"`

	// Context is an optional surrounding passage used to disambiguate
	// the translation. It is never persisted.
	Context string `json:"context,omitempty"`

	// PageURL is the URL of the page the text was highlighted on.
	PageURL string `json:"url,omitempty"`

	// TargetLang optionally overrides the relay's target language.
	TargetLang string `json:"target_lang,omitempty"`
}

// Record is a persisted flashcard: an original/translation pair with metadata.
// Records are append-only; they are deleted but never mutated.
type Record struct {
	ID          string    `json:"id,omitempty"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	Date        time.Time `json:"date"`
	URL         string    `json:"url,omitempty"`
	SourceLang  string    `json:"source_lang,omitempty"`
	TargetLang  string    `json:"target_lang,omitempty"`

	// RemoteID is the hosted table row id for synced records.
	RemoteID string `json:"remote_id,omitempty"`

	// Cached reports whether the translation came from the cache rather
	// than a provider call. Never persisted.
	Cached bool `json:"cached,omitempty"`
}

// TranslateRequest contains the parameters for a provider translation call.
type TranslateRequest struct {
	Texts      []string
	TargetLang string
	SourceLang string
	Context    string
}

// Provider is the interface for translation backends.
type Provider interface {
	// Translate returns one translation per input text, in order.
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)

	// Name identifies the backend in logs.
	Name() string
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// CardStore persists flashcard records. Implementations exist for local
// storage and for the hosted backend; see the store package.
type CardStore interface {
	// Insert appends a record, assigning an id if it has none.
	Insert(ctx context.Context, rec Record) (Record, error)

	// List returns all records, oldest first.
	List(ctx context.Context) ([]Record, error)

	// Delete removes a single record by id.
	Delete(ctx context.Context, id string) error

	// DeleteByHost removes every record whose source URL has the given host.
	DeleteByHost(ctx context.Context, host string) error

	// ReplaceAll rewrites the full collection.
	ReplaceAll(ctx context.Context, recs []Record) error
}

// SiteGroup is a derived, view-only partition of records by source host.
// It is never persisted.
type SiteGroup struct {
	Host    string   `json:"host"`
	Records []Record `json:"records"`
}

// Settings is the persisted relay configuration.
type Settings struct {
	Enabled    bool   `json:"enabled"`
	TargetLang string `json:"target_lang"`
	RememberMe bool   `json:"remember_me"`
}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// IgnoredTags contains HTML tags whose content is never treated as page text
// when extracting selection context.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"code":     true,
	"pre":      true,
	"textarea": true,
	"noscript": true,
}
