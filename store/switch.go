package store

import (
	"context"

	"github.com/lingomark/lingomark"
)

// AuthState reports whether a session is currently active.
type AuthState interface {
	Authenticated() bool
}

// Switching returns a CardStore that re-selects the backend on every call,
// so sign-in and sign-out take effect immediately for all record traffic.
func Switching(state AuthState, local, hosted lingomark.CardStore) lingomark.CardStore {
	return &switchingStore{state: state, local: local, hosted: hosted}
}

type switchingStore struct {
	state  AuthState
	local  lingomark.CardStore
	hosted lingomark.CardStore
}

func (s *switchingStore) pick() lingomark.CardStore {
	authed := s.state != nil && s.state.Authenticated()
	return Select(authed, s.local, s.hosted)
}

func (s *switchingStore) Insert(ctx context.Context, rec lingomark.Record) (lingomark.Record, error) {
	return s.pick().Insert(ctx, rec)
}

func (s *switchingStore) List(ctx context.Context) ([]lingomark.Record, error) {
	return s.pick().List(ctx)
}

func (s *switchingStore) Delete(ctx context.Context, id string) error {
	return s.pick().Delete(ctx, id)
}

func (s *switchingStore) DeleteByHost(ctx context.Context, host string) error {
	return s.pick().DeleteByHost(ctx, host)
}

func (s *switchingStore) ReplaceAll(ctx context.Context, recs []lingomark.Record) error {
	return s.pick().ReplaceAll(ctx, recs)
}

var _ lingomark.CardStore = (*switchingStore)(nil)
