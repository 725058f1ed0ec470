package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lingomark/lingomark"
	"github.com/lingomark/lingomark/auth"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionInfo struct {
	User      userInfo `json:"user"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
	Remember  bool     `json:"remember"`
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newSessionInfo(sess *auth.Session, remember bool) sessionInfo {
	info := sessionInfo{
		User:     userInfo{ID: sess.User.ID, Email: sess.User.Email},
		Remember: remember,
	}
	if exp := sess.Expiry(); !exp.IsZero() {
		info.ExpiresAt = exp.Unix()
	}
	return info
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if s.keeper == nil {
		s.respondError(w, http.StatusServiceUnavailable, "hosted sync is not configured")
		return
	}

	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, err := s.keeper.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondAuthError(w, err)
		return
	}
	s.respond(w, http.StatusOK, newSessionInfo(sess, s.keeper.Remember()))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if s.keeper == nil {
		s.respondError(w, http.StatusServiceUnavailable, "hosted sync is not configured")
		return
	}
	// The local session is gone either way. A failed remote revocation is
	// worth a log line, not an error response.
	if err := s.keeper.SignOut(r.Context()); err != nil {
		s.logger.Warn("remote sign out failed", "error", err)
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	if s.keeper == nil {
		s.respondError(w, http.StatusUnauthorized, "no active session")
		return
	}
	sess, err := s.keeper.Session()
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "no active session")
		return
	}
	s.respond(w, http.StatusOK, newSessionInfo(sess, s.keeper.Remember()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.keeper == nil {
		s.respondError(w, http.StatusServiceUnavailable, "hosted sync is not configured")
		return
	}
	if err := s.keeper.Refresh(r.Context()); err != nil {
		if errors.Is(err, lingomark.ErrNoSession) {
			s.respondError(w, http.StatusUnauthorized, "no active session")
			return
		}
		s.respondAuthError(w, err)
		return
	}
	sess, err := s.keeper.Session()
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "no active session")
		return
	}
	s.respond(w, http.StatusOK, newSessionInfo(sess, s.keeper.Remember()))
}

// respondAuthError distinguishes a rejection by the auth service from a
// transport failure reaching it.
func (s *Server) respondAuthError(w http.ResponseWriter, err error) {
	var aerr *lingomark.AuthError
	if errors.As(err, &aerr) && aerr.Status != 0 {
		msg := aerr.Message
		if msg == "" {
			msg = "authentication failed"
		}
		s.respondError(w, http.StatusUnauthorized, msg)
		return
	}
	s.logger.Error("auth service unreachable", "error", err)
	s.respondError(w, http.StatusBadGateway, "authentication service unreachable")
}
