package lingomark

import "sort"

// DeckDiff represents the difference between an existing flashcard
// collection and an imported one. Records are matched by the hash of their
// original text, mirroring the hosted table's (user, original) key.
type DeckDiff struct {
	// Added contains imported records with no existing counterpart.
	Added []Record

	// Updated contains pairs where the imported record carries a newer
	// date than the existing one for the same original text.
	Updated []UpdatedRecord

	// Unchanged contains existing records the import leaves untouched.
	Unchanged []Record
}

// UpdatedRecord is an existing record superseded by an imported one.
type UpdatedRecord struct {
	Old Record
	New Record
}

// DiffStats contains summary statistics for a deck diff.
type DiffStats struct {
	Added     int
	Updated   int
	Unchanged int
}

// Stats returns summary statistics for the diff.
func (d *DeckDiff) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Updated:   len(d.Updated),
		Unchanged: len(d.Unchanged),
	}
}

// HasChanges returns true if applying the diff would modify the collection.
func (d *DeckDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Updated) > 0
}

// DiffDecks compares an existing collection with an imported one.
// When the same original text appears in both, the newer date wins;
// a tie keeps the existing record.
func DiffDecks(existing, imported []Record) *DeckDiff {
	result := &DeckDiff{}

	// Index imported by original-text hash, newest date wins within the import
	incoming := make(map[string]Record)
	for _, rec := range imported {
		key := HashText(rec.Original)
		if prev, ok := incoming[key]; !ok || rec.Date.After(prev.Date) {
			incoming[key] = rec
		}
	}

	seen := make(map[string]bool)
	for _, rec := range existing {
		key := HashText(rec.Original)
		seen[key] = true

		in, ok := incoming[key]
		if !ok {
			result.Unchanged = append(result.Unchanged, rec)
			continue
		}
		if in.Date.After(rec.Date) {
			result.Updated = append(result.Updated, UpdatedRecord{Old: rec, New: in})
		} else {
			result.Unchanged = append(result.Unchanged, rec)
		}
	}

	for _, rec := range imported {
		key := HashText(rec.Original)
		if seen[key] {
			continue
		}
		result.Added = append(result.Added, incoming[key])
		seen[key] = true
	}

	return result
}

// MergeDecks merges an imported collection into an existing one with
// last-write-wins semantics and returns the result ordered oldest first.
// Updated records keep their existing id so store rewrites stay stable.
func MergeDecks(existing, imported []Record) []Record {
	diff := DiffDecks(existing, imported)

	merged := make([]Record, 0, len(diff.Unchanged)+len(diff.Updated)+len(diff.Added))
	merged = append(merged, diff.Unchanged...)
	for _, u := range diff.Updated {
		rec := u.New
		if rec.ID == "" {
			rec.ID = u.Old.ID
		}
		merged = append(merged, rec)
	}
	merged = append(merged, diff.Added...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})

	return merged
}
