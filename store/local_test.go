package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lingomark/lingomark"
)

func openTestStore(t *testing.T, opts ...LocalOption) *LocalStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lingomark.db"), opts...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLocalStore_InsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, lingomark.Record{
		Original:    "bonjour",
		Translation: "hello",
		URL:         "https://lemonde.fr/article",
		SourceLang:  "fr",
		TargetLang:  "en",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if rec.ID == "" {
		t.Error("Insert should assign an ID")
	}
	if rec.Date.IsZero() {
		t.Error("Insert should assign a date")
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(list))
	}

	got := list[0]
	if got.ID != rec.ID || got.Original != "bonjour" || got.Translation != "hello" {
		t.Errorf("Round trip mismatch: %+v", got)
	}
	if got.URL != "https://lemonde.fr/article" || got.SourceLang != "fr" || got.TargetLang != "en" {
		t.Errorf("Round trip lost fields: %+v", got)
	}
	if !got.Date.Equal(rec.Date) {
		t.Errorf("Date mismatch: stored %v, listed %v", rec.Date, got.Date)
	}
}

func TestLocalStore_RingEviction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 105; i++ {
		_, err := s.Insert(ctx, lingomark.Record{
			Original:    fmt.Sprintf("mot-%03d", i),
			Translation: fmt.Sprintf("word-%03d", i),
			Date:        base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != DefaultRingSize {
		t.Fatalf("Expected %d survivors, got %d", DefaultRingSize, len(list))
	}

	// The five oldest must be gone; the newest must survive.
	if list[0].Original != "mot-005" {
		t.Errorf("Expected oldest survivor mot-005, got %s", list[0].Original)
	}
	if list[len(list)-1].Original != "mot-104" {
		t.Errorf("Expected newest record mot-104, got %s", list[len(list)-1].Original)
	}
}

func TestLocalStore_RingSizeOption(t *testing.T) {
	s := openTestStore(t, WithRingSize(3))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := s.Insert(ctx, lingomark.Record{
			Original:    fmt.Sprintf("mot-%d", i),
			Translation: "x",
			Date:        base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(list))
	}
	if list[0].Original != "mot-2" {
		t.Errorf("Expected mot-2 as oldest survivor, got %s", list[0].Original)
	}
}

func TestLocalStore_ListOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		if _, err := s.Insert(ctx, lingomark.Record{
			Original:    fmt.Sprintf("mot-%d", i),
			Translation: "x",
			Date:        d,
		}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	for i := 1; i < len(list); i++ {
		if list[i].Date.Before(list[i-1].Date) {
			t.Errorf("List not oldest-first at %d: %v before %v", i, list[i].Date, list[i-1].Date)
		}
	}
}

func TestLocalStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Insert(ctx, lingomark.Record{Original: "bonjour", Translation: "hello"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	list, _ := s.List(ctx)
	if len(list) != 0 {
		t.Errorf("Expected empty store after delete, got %d records", len(list))
	}

	if err := s.Delete(ctx, "missing"); !errors.Is(err, lingomark.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestLocalStore_DeleteByHost(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserts := []lingomark.Record{
		{Original: "un", Translation: "one", URL: "https://lemonde.fr/a"},
		{Original: "deux", Translation: "two", URL: "https://Lemonde.FR/b"},
		{Original: "drei", Translation: "three", URL: "https://spiegel.de/c"},
		{Original: "vier", Translation: "four"},
	}
	for _, rec := range inserts {
		if _, err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if err := s.DeleteByHost(ctx, "lemonde.fr"); err != nil {
		t.Fatalf("DeleteByHost failed: %v", err)
	}

	list, _ := s.List(ctx)
	if len(list) != 2 {
		t.Fatalf("Expected 2 records after host delete, got %d", len(list))
	}
	for _, rec := range list {
		if rec.Original == "un" || rec.Original == "deux" {
			t.Errorf("Record %s should have been deleted", rec.Original)
		}
	}

	// Records without a URL group under "other" and go together.
	if err := s.DeleteByHost(ctx, lingomark.OtherHost); err != nil {
		t.Fatalf("DeleteByHost(other) failed: %v", err)
	}
	list, _ = s.List(ctx)
	if len(list) != 1 || list[0].Original != "drei" {
		t.Errorf("Expected only drei to survive, got %+v", list)
	}

	// Unknown host is a no-op, not an error.
	if err := s.DeleteByHost(ctx, "nosuch.example"); err != nil {
		t.Errorf("DeleteByHost on unknown host should succeed, got %v", err)
	}
}

func TestLocalStore_ReplaceAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Insert(ctx, lingomark.Record{Original: fmt.Sprintf("old-%d", i), Translation: "x"}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	replacement := []lingomark.Record{
		{Original: "neu", Translation: "new", Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Original: "nouveau", Translation: "new", Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	if err := s.ReplaceAll(ctx, replacement); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 records after replace, got %d", len(list))
	}
	if list[0].Original != "neu" || list[1].Original != "nouveau" {
		t.Errorf("Unexpected records after replace: %+v", list)
	}
	if list[0].ID == "" {
		t.Error("ReplaceAll should assign IDs to new records")
	}
}

func TestLocalStore_ReplaceAllRespectsRing(t *testing.T) {
	s := openTestStore(t, WithRingSize(2))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := make([]lingomark.Record, 4)
	for i := range recs {
		recs[i] = lingomark.Record{
			Original:    fmt.Sprintf("mot-%d", i),
			Translation: "x",
			Date:        base.Add(time.Duration(i) * time.Second),
		}
	}

	if err := s.ReplaceAll(ctx, recs); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	list, _ := s.List(ctx)
	if len(list) != 2 {
		t.Fatalf("Expected ring bound of 2, got %d", len(list))
	}
	if list[0].Original != "mot-2" || list[1].Original != "mot-3" {
		t.Errorf("Expected the two newest to survive, got %+v", list)
	}
}

func TestLocalStore_Settings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.GetSetting(ctx, "target_lang")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if v != "" {
		t.Errorf("Expected empty value for unset key, got %q", v)
	}

	if err := s.SetSetting(ctx, "target_lang", "de"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := s.SetSetting(ctx, "target_lang", "fr"); err != nil {
		t.Fatalf("SetSetting overwrite failed: %v", err)
	}

	v, err = s.GetSetting(ctx, "target_lang")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if v != "fr" {
		t.Errorf("Expected fr after overwrite, got %q", v)
	}
}

func TestLocalStore_SessionMirror(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	data, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if data != nil {
		t.Errorf("Expected nil session before save, got %q", data)
	}

	payload := []byte(`{"access_token":"abc"}`)
	if err := s.SaveSession(ctx, payload); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	data, err = s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Session round trip mismatch: %q", data)
	}

	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	data, _ = s.LoadSession(ctx)
	if data != nil {
		t.Error("Expected nil session after clear")
	}
}

func TestLocalStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lingomark.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Insert(ctx, lingomark.Record{Original: "bonjour", Translation: "hello"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	s.Close()

	// Reopening applies migrations idempotently and keeps the data.
	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s2.Close()

	list, err := s2.List(ctx)
	if err != nil {
		t.Fatalf("List after reopen failed: %v", err)
	}
	if len(list) != 1 || list[0].Original != "bonjour" {
		t.Errorf("Expected persisted record after reopen, got %+v", list)
	}
}
