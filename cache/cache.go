// Package cache provides translation caching implementations.
//
// Keys pair a text hash with a lowercased target language; entries are
// never invalidated during a process lifetime unless a TTL is configured.
package cache

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

// ExportableCache is a cache whose entries can be enumerated for export.
type ExportableCache interface {
	TranslationCache

	// Keys returns all live keys in the cache.
	Keys() []string
}
