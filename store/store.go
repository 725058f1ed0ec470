// Package store provides the two persistence backends for translation
// records: a bounded local SQLite ring for anonymous use and a hosted
// PostgREST-backed table for signed-in users. Exactly one backend is active
// at a time; Select picks it from the current auth state.
package store

import (
	"context"

	"github.com/lingomark/lingomark"
)

// TokenSource supplies the access token and user id for hosted requests.
// The auth keeper implements it; every hosted call fetches a fresh token so
// expired sessions are refreshed before they hit the wire.
type TokenSource interface {
	Token(ctx context.Context) (accessToken, userID string, err error)
}

// Select returns the store for the current auth state: the hosted store when
// a session is active, the local ring otherwise. Switching auth state
// switches the visible dataset; the two are never merged.
func Select(authenticated bool, local, hosted lingomark.CardStore) lingomark.CardStore {
	if authenticated && hosted != nil {
		return hosted
	}
	return local
}
