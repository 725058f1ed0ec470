package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lingomark/lingomark"
)

// DefaultHostedTable is the PostgREST table hosted records live in.
const DefaultHostedTable = "translations"

// HostedStore is a REST client for the hosted record table, PostgREST-shaped
// (apikey + bearer headers, query-string filters). Rows are keyed by
// (user_id, original); inserting an existing original overwrites it.
type HostedStore struct {
	baseURL string
	apiKey  string
	tokens  TokenSource
	table   string
	client  *http.Client
}

// HostedConfig holds configuration for the hosted store.
type HostedConfig struct {
	BaseURL string        // Service root, e.g. https://project.example.co
	APIKey  string        // Public API key sent in the apikey header
	Tokens  TokenSource   // Session tokens for per-user access
	Table   string        // Table name (default: "translations")
	Timeout time.Duration // HTTP timeout (default: 15s)
	Client  *http.Client  // Custom HTTP client (optional)
}

// NewHostedStore creates a hosted store client.
func NewHostedStore(cfg HostedConfig) *HostedStore {
	table := cfg.Table
	if table == "" {
		table = DefaultHostedTable
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HostedStore{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		tokens:  cfg.Tokens,
		table:   table,
		client:  client,
	}
}

// hostedRow mirrors a row in the hosted table.
type hostedRow struct {
	ID          string `json:"id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
	URL         string `json:"url,omitempty"`
	Host        string `json:"host,omitempty"`
	SourceLang  string `json:"source_lang,omitempty"`
	TargetLang  string `json:"target_lang,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func (h *HostedStore) tableURL(query url.Values) string {
	u := h.baseURL + "/rest/v1/" + h.table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do issues one authenticated request. The token source is consulted every
// time so a stale session gets refreshed before the call.
func (h *HostedStore) do(ctx context.Context, op, method, rawURL string, body []byte, prefer string) ([]byte, error) {
	token, _, err := h.tokens.Token(ctx)
	if err != nil {
		return nil, &lingomark.StoreError{Op: op, Message: "resolving session token", Cause: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, &lingomark.StoreError{Op: op, Message: "building request", Cause: err}
	}
	req.Header.Set("apikey", h.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", lingomark.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &lingomark.StoreError{Op: op, Message: "calling hosted store", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &lingomark.StoreError{Op: op, Message: "reading response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &lingomark.StoreError{
			Op:      op,
			Message: fmt.Sprintf("hosted store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}
	return data, nil
}

// Insert upserts a record keyed by (user_id, original). A re-translation of
// the same original overwrites the stored row, last write wins.
func (h *HostedStore) Insert(ctx context.Context, rec lingomark.Record) (lingomark.Record, error) {
	_, userID, err := h.tokens.Token(ctx)
	if err != nil {
		return rec, &lingomark.StoreError{Op: "insert", Message: "resolving session token", Cause: err}
	}

	if rec.Date.IsZero() {
		rec.Date = time.Now()
	}
	rec.Date = rec.Date.UTC().Truncate(time.Second)

	row := hostedRow{
		UserID:      userID,
		Original:    rec.Original,
		Translation: rec.Translation,
		URL:         rec.URL,
		Host:        lingomark.HostOf(rec.URL),
		SourceLang:  rec.SourceLang,
		TargetLang:  rec.TargetLang,
		CreatedAt:   rec.Date.Format(time.RFC3339),
	}
	body, err := json.Marshal([]hostedRow{row})
	if err != nil {
		return rec, &lingomark.StoreError{Op: "insert", Message: "encoding record", Cause: err}
	}

	query := url.Values{}
	query.Set("on_conflict", "user_id,original")
	data, err := h.do(ctx, "insert", http.MethodPost, h.tableURL(query), body,
		"resolution=merge-duplicates,return=representation")
	if err != nil {
		return rec, err
	}

	var rows []hostedRow
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
		rec.RemoteID = rows[0].ID
		if rec.ID == "" {
			rec.ID = rows[0].ID
		}
	}
	return rec, nil
}

// List returns the signed-in user's records, oldest first.
func (h *HostedStore) List(ctx context.Context) ([]lingomark.Record, error) {
	_, userID, err := h.tokens.Token(ctx)
	if err != nil {
		return nil, &lingomark.StoreError{Op: "list", Message: "resolving session token", Cause: err}
	}

	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", "eq."+userID)
	query.Set("order", "created_at.asc")

	data, err := h.do(ctx, "list", http.MethodGet, h.tableURL(query), nil, "")
	if err != nil {
		return nil, err
	}

	var rows []hostedRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &lingomark.StoreError{Op: "list", Message: "decoding response", Cause: err}
	}

	out := make([]lingomark.Record, 0, len(rows))
	for _, row := range rows {
		rec := lingomark.Record{
			ID:          row.ID,
			Original:    row.Original,
			Translation: row.Translation,
			URL:         row.URL,
			SourceLang:  row.SourceLang,
			TargetLang:  row.TargetLang,
			RemoteID:    row.ID,
		}
		rec.Date, _ = time.Parse(time.RFC3339, row.CreatedAt)
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes one hosted row by id. Deleting an unknown id returns
// ErrNotFound.
func (h *HostedStore) Delete(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	data, err := h.do(ctx, "delete", http.MethodDelete, h.tableURL(query), nil, "return=representation")
	if err != nil {
		return err
	}

	var rows []hostedRow
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) == 0 {
		return lingomark.ErrNotFound
	}
	return nil
}

// DeleteByHost removes every hosted row captured on the given host.
func (h *HostedStore) DeleteByHost(ctx context.Context, host string) error {
	query := url.Values{}
	query.Set("host", "eq."+strings.ToLower(host))

	_, err := h.do(ctx, "delete_host", http.MethodDelete, h.tableURL(query), nil, "")
	return err
}

// ReplaceAll clears the user's rows and uploads the given set in one bulk
// insert.
func (h *HostedStore) ReplaceAll(ctx context.Context, recs []lingomark.Record) error {
	_, userID, err := h.tokens.Token(ctx)
	if err != nil {
		return &lingomark.StoreError{Op: "replace", Message: "resolving session token", Cause: err}
	}

	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	if _, err := h.do(ctx, "replace", http.MethodDelete, h.tableURL(query), nil, ""); err != nil {
		return err
	}

	if len(recs) == 0 {
		return nil
	}

	rows := make([]hostedRow, 0, len(recs))
	for _, rec := range recs {
		date := rec.Date
		if date.IsZero() {
			date = time.Now()
		}
		rows = append(rows, hostedRow{
			UserID:      userID,
			Original:    rec.Original,
			Translation: rec.Translation,
			URL:         rec.URL,
			Host:        lingomark.HostOf(rec.URL),
			SourceLang:  rec.SourceLang,
			TargetLang:  rec.TargetLang,
			CreatedAt:   date.UTC().Truncate(time.Second).Format(time.RFC3339),
		})
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return &lingomark.StoreError{Op: "replace", Message: "encoding records", Cause: err}
	}

	insertQuery := url.Values{}
	insertQuery.Set("on_conflict", "user_id,original")
	_, err = h.do(ctx, "replace", http.MethodPost, h.tableURL(insertQuery), body,
		"resolution=merge-duplicates")
	return err
}

// Verify HostedStore implements CardStore
var _ lingomark.CardStore = (*HostedStore)(nil)
