package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lingomark/lingomark"
	"github.com/lingomark/lingomark/snippet"
)

// maxBodySize caps request bodies. Page HTML and deck files both fit
// comfortably under this.
const maxBodySize = 4 << 20

type translateRequest struct {
	Text       string `json:"text"`
	Context    string `json:"context"`
	URL        string `json:"url"`
	HTML       string `json:"html"`
	TargetLang string `json:"target_lang"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	// When the extension ships raw page HTML instead of a ready-made
	// context, extract the sentence around the selection here.
	if req.Context == "" && req.HTML != "" {
		passage, err := snippet.FromHTML(req.HTML, req.Text)
		if err != nil {
			s.logger.Warn("extracting context from page html", "error", err)
		} else {
			req.Context = passage
		}
	}

	rec, err := s.relay.Translate(r.Context(), lingomark.Request{
		Text:       req.Text,
		Context:    req.Context,
		PageURL:    req.URL,
		TargetLang: req.TargetLang,
	})
	if err != nil {
		if errors.Is(err, lingomark.ErrRelayDisabled) {
			s.respondError(w, http.StatusServiceUnavailable, "translation is disabled")
			return
		}
		var serr *lingomark.StoreError
		if errors.As(err, &serr) {
			// The translation itself succeeded. Hand it back and let the
			// client know persistence is degraded via logs.
			s.logger.Warn("record not persisted", "op", serr.Op, "error", err)
			s.respond(w, http.StatusOK, rec)
			return
		}
		s.logger.Error("translate failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "translation failed")
		return
	}
	s.respond(w, http.StatusOK, rec)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.cards.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "listing records failed")
		return
	}
	if recs == nil {
		recs = []lingomark.Record{}
	}
	s.respond(w, http.StatusOK, recs)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.cards.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "deleting record failed")
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteByHost(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		s.respondError(w, http.StatusBadRequest, "host is required")
		return
	}
	if err := s.cards.DeleteByHost(r.Context(), host); err != nil {
		s.respondStoreError(w, err, "deleting records failed")
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	recs, err := s.cards.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "listing records failed")
		return
	}
	groups := lingomark.GroupByHost(recs)
	if groups == nil {
		groups = []lingomark.SiteGroup{}
	}
	s.respond(w, http.StatusOK, groups)
}

type reviewResponse struct {
	Seed  int64              `json:"seed"`
	Cards []lingomark.Record `json:"cards"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var seed int64
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "seed must be an integer")
			return
		}
		seed = n
	}

	recs, err := s.cards.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "listing records failed")
		return
	}
	if host := q.Get("host"); host != "" {
		recs = lingomark.FilterByHost(recs, host)
	}

	review := lingomark.NewReview(recs, seed)
	s.respond(w, http.StatusOK, reviewResponse{
		Seed:  review.Seed(),
		Cards: review.Deck(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	recs, err := s.cards.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "listing records failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="lingomark-deck.json"`)
	if err := lingomark.ExportDeck(w, recs); err != nil {
		s.logger.Error("writing deck export", "error", err)
	}
}

type importResponse struct {
	Imported int `json:"imported"`
	Added    int `json:"added"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	imported, err := lingomark.ImportDeck(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		var verr *lingomark.ValidationError
		if errors.As(err, &verr) {
			s.respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid deck file")
		return
	}

	existing, err := s.cards.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "listing records failed")
		return
	}

	diff := lingomark.DiffDecks(existing, imported)
	merged := lingomark.MergeDecks(existing, imported)
	if err := s.cards.ReplaceAll(r.Context(), merged); err != nil {
		s.respondStoreError(w, err, "saving imported deck failed")
		return
	}

	stats := diff.Stats()
	s.respond(w, http.StatusOK, importResponse{
		Imported: len(imported),
		Added:    stats.Added,
		Updated:  stats.Updated,
		Total:    len(merged),
	})
}

func (s *Server) handleExportApkg(w http.ResponseWriter, r *http.Request) {
	if s.apkg == nil {
		s.respondError(w, http.StatusServiceUnavailable, "apkg export is not configured")
		return
	}

	recs, err := s.cards.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "listing records failed")
		return
	}
	if host := r.URL.Query().Get("host"); host != "" {
		recs = lingomark.FilterByHost(recs, host)
	}

	// Build into a buffer so a failed export can still produce a JSON error.
	var buf bytes.Buffer
	if err := s.apkg.Export(&buf, recs); err != nil {
		s.logger.Error("building apkg", "error", err)
		s.respondError(w, http.StatusInternalServerError, "building apkg failed")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="lingomark.apkg"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("writing apkg response", "error", err)
	}
}

type settingsRequest struct {
	Enabled    *bool   `json:"enabled"`
	TargetLang *string `json:"target_lang"`
	RememberMe *bool   `json:"remember_me"`
}

func (s *Server) currentSettings() lingomark.Settings {
	out := lingomark.Settings{
		Enabled:    s.relay.Enabled(),
		TargetLang: s.relay.TargetLang(),
	}
	if s.keeper != nil {
		out.RememberMe = s.keeper.Remember()
	}
	return out
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.currentSettings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	if req.TargetLang != nil {
		if !lingomark.IsSupportedTarget(*req.TargetLang) {
			s.respondError(w, http.StatusBadRequest, "unsupported target language: "+*req.TargetLang)
			return
		}
		s.relay.SetTargetLang(*req.TargetLang)
		s.saveSetting(ctx, SettingTargetLang, lingomark.NormalizeTarget(*req.TargetLang))
	}
	if req.Enabled != nil {
		s.relay.SetEnabled(*req.Enabled)
		s.saveSetting(ctx, SettingEnabled, strconv.FormatBool(*req.Enabled))
	}
	if req.RememberMe != nil && s.keeper != nil {
		s.keeper.SetRemember(ctx, *req.RememberMe)
		s.saveSetting(ctx, SettingRememberMe, strconv.FormatBool(*req.RememberMe))
	}

	s.respond(w, http.StatusOK, s.currentSettings())
}

func (s *Server) saveSetting(ctx context.Context, key, value string) {
	if s.settings == nil {
		return
	}
	if err := s.settings.SetSetting(ctx, key, value); err != nil {
		s.logger.Warn("persisting setting", "key", key, "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	return dec.Decode(v)
}
