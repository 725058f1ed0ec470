package store

import (
	"context"
	"testing"

	"github.com/lingomark/lingomark"
)

type countingStore struct {
	inserts int
	lists   int
}

func (c *countingStore) Insert(ctx context.Context, rec lingomark.Record) (lingomark.Record, error) {
	c.inserts++
	return rec, nil
}

func (c *countingStore) List(ctx context.Context) ([]lingomark.Record, error) {
	c.lists++
	return nil, nil
}

func (c *countingStore) Delete(ctx context.Context, id string) error { return nil }

func (c *countingStore) DeleteByHost(ctx context.Context, host string) error { return nil }
func (c *countingStore) ReplaceAll(ctx context.Context, recs []lingomark.Record) error {
	return nil
}

type fakeAuthState struct{ authed bool }

func (f *fakeAuthState) Authenticated() bool { return f.authed }

func TestSelect(t *testing.T) {
	local := &countingStore{}
	hosted := &countingStore{}

	if got := Select(false, local, hosted); got != lingomark.CardStore(local) {
		t.Error("Unauthenticated should select the local store")
	}
	if got := Select(true, local, hosted); got != lingomark.CardStore(hosted) {
		t.Error("Authenticated should select the hosted store")
	}
	if got := Select(true, local, nil); got != lingomark.CardStore(local) {
		t.Error("Authenticated without a hosted store should fall back to local")
	}
}

func TestSwitching_FollowsAuthState(t *testing.T) {
	local := &countingStore{}
	hosted := &countingStore{}
	state := &fakeAuthState{}
	ctx := context.Background()

	s := Switching(state, local, hosted)

	if _, err := s.Insert(ctx, lingomark.Record{Original: "bonjour"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if local.inserts != 1 || hosted.inserts != 0 {
		t.Errorf("Signed-out insert should hit local: local=%d hosted=%d", local.inserts, hosted.inserts)
	}

	// Signing in reroutes the very next call.
	state.authed = true
	if _, err := s.Insert(ctx, lingomark.Record{Original: "merci"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if local.inserts != 1 || hosted.inserts != 1 {
		t.Errorf("Signed-in insert should hit hosted: local=%d hosted=%d", local.inserts, hosted.inserts)
	}

	state.authed = false
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if local.lists != 1 || hosted.lists != 0 {
		t.Errorf("Signed-out list should hit local: local=%d hosted=%d", local.lists, hosted.lists)
	}
}
