package lingomark

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExportDeck writes records to w as an indented JSON array using the stable
// field names (original, translation, date, url, ...).
func ExportDeck(w io.Writer, recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("encoding deck: %w", err)
	}
	return nil
}

// importRecord mirrors Record with a string date so validation can tell a
// missing field from a malformed one.
type importRecord struct {
	ID          string `json:"id"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Date        string `json:"date"`
	URL         string `json:"url"`
	SourceLang  string `json:"source_lang"`
	TargetLang  string `json:"target_lang"`
}

// ImportDeck parses a JSON array of records and validates it wholesale:
// every element must carry non-empty original, translation and date fields,
// and the date must parse. Any violation rejects the entire payload with a
// ValidationError; there is no partial import.
func ImportDeck(r io.Reader) ([]Record, error) {
	var raw []importRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding deck: %w", err)
	}

	recs := make([]Record, 0, len(raw))
	for i, in := range raw {
		if strings.TrimSpace(in.Original) == "" {
			return nil, &ValidationError{Index: i, Field: "original"}
		}
		if strings.TrimSpace(in.Translation) == "" {
			return nil, &ValidationError{Index: i, Field: "translation"}
		}
		if strings.TrimSpace(in.Date) == "" {
			return nil, &ValidationError{Index: i, Field: "date"}
		}

		date, err := parseDeckDate(in.Date)
		if err != nil {
			return nil, &ValidationError{Index: i, Field: "date"}
		}

		recs = append(recs, Record{
			ID:          in.ID,
			Original:    strings.TrimSpace(in.Original),
			Translation: in.Translation,
			Date:        date,
			URL:         in.URL,
			SourceLang:  in.SourceLang,
			TargetLang:  NormalizeTarget(in.TargetLang),
		})
	}

	return recs, nil
}

// parseDeckDate accepts RFC 3339 timestamps and bare dates.
func parseDeckDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
