package lingomark

import (
	"context"
	"strings"
	"sync"
)

// warmWorkers caps concurrent cache writes during warming. Remote caches
// see at most this many in-flight Set calls.
const warmWorkers = 8

// Warm seeds the cache from persisted records so that highlights repeated
// after a restart hit the cache instead of the provider. Placeholder
// translations are skipped, and existing keys are never overwritten.
// Returns the number of entries written.
func (r *Relay) Warm(ctx context.Context, recs []Record) int {
	if r.cache == nil || len(recs) == 0 {
		return 0
	}

	// Deduplicate by cache key, last record wins
	unique := make(map[string]string)
	for _, rec := range recs {
		if !warmable(rec) {
			continue
		}
		target := NormalizeTarget(rec.TargetLang)
		if target == "" {
			target = r.TargetLang()
		}
		key := CacheKey(HashText(rec.Original), target)
		unique[key] = rec.Translation
	}

	if len(unique) == 0 {
		return 0
	}

	results := make(chan bool, len(unique))
	sem := make(chan struct{}, warmWorkers)
	var wg sync.WaitGroup

	for key, translation := range unique {
		wg.Add(1)
		go func(k, v string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				results <- false
				return
			}
			if _, ok := r.cache.Get(k); ok {
				results <- false
				return
			}
			if err := r.cache.Set(k, v); err != nil {
				r.logger.Warn("cache warm failed", "error", err)
				results <- false
				return
			}
			results <- true
		}(key, translation)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	seeded := 0
	for ok := range results {
		if ok {
			seeded++
		}
	}

	return seeded
}

// warmable reports whether a record carries a real translation worth caching.
func warmable(rec Record) bool {
	if strings.TrimSpace(rec.Original) == "" || rec.Translation == "" {
		return false
	}
	if strings.HasPrefix(rec.Translation, failedPrefix) || strings.HasPrefix(rec.Translation, MockPrefix) {
		return false
	}
	return true
}
