package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lingomark/lingomark"
)

// DefaultRefreshInterval is how often the background refresher runs.
const DefaultRefreshInterval = 10 * time.Minute

// expirySkew is the window within which a session already counts as expired,
// so tokens get refreshed before they lapse mid-request.
const expirySkew = 30 * time.Second

// SessionMirror persists a session across restarts for remember-me. The
// local store implements it.
type SessionMirror interface {
	SaveSession(ctx context.Context, data []byte) error
	LoadSession(ctx context.Context) ([]byte, error)
	ClearSession(ctx context.Context) error
}

// Keeper owns the current session. It refreshes tokens both proactively
// (a background ticker) and lazily (EnsureFresh before authenticated calls),
// and mirrors the session locally when remember-me is on.
type Keeper struct {
	client   *Client
	mirror   SessionMirror
	interval time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	session  *Session
	remember bool

	// refreshMu serializes refresh calls so concurrent EnsureFresh and the
	// background ticker do not race the same refresh token.
	refreshMu sync.Mutex

	stopOnce sync.Once
	stop     chan struct{}
}

// KeeperOption configures a Keeper.
type KeeperOption func(*Keeper)

// WithMirror sets the session mirror used for remember-me.
func WithMirror(m SessionMirror) KeeperOption {
	return func(k *Keeper) {
		k.mirror = m
	}
}

// WithRemember sets the initial remember-me state.
func WithRemember(on bool) KeeperOption {
	return func(k *Keeper) {
		k.remember = on
	}
}

// WithRefreshInterval overrides the background refresh interval.
func WithRefreshInterval(d time.Duration) KeeperOption {
	return func(k *Keeper) {
		if d > 0 {
			k.interval = d
		}
	}
}

// WithLogger sets the logger for background refresh and mirror failures.
func WithLogger(logger *slog.Logger) KeeperOption {
	return func(k *Keeper) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// NewKeeper creates a session keeper around an auth client.
func NewKeeper(client *Client, opts ...KeeperOption) *Keeper {
	k := &Keeper{
		client:   client,
		interval: DefaultRefreshInterval,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Restore loads the mirrored session, if any. Unusable mirror data gets
// dropped. An expired restored session is kept; the next authenticated call
// refreshes it through EnsureFresh.
func (k *Keeper) Restore(ctx context.Context) error {
	if k.mirror == nil {
		return nil
	}
	data, err := k.mirror.LoadSession(ctx)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.AccessToken == "" || s.RefreshToken == "" {
		if cerr := k.mirror.ClearSession(ctx); cerr != nil {
			k.logger.Warn("failed to clear unusable session mirror", "error", cerr)
		}
		return nil
	}

	k.mu.Lock()
	k.session = &s
	k.mu.Unlock()
	return nil
}

// SignIn authenticates and stores the resulting session.
func (k *Keeper) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s, err := k.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	k.setSession(ctx, s)
	return k.Session()
}

// SignOut revokes the session server-side and clears both the in-memory
// session and the mirror. Local state is cleared even when the remote call
// fails; the error is returned for logging.
func (k *Keeper) SignOut(ctx context.Context) error {
	k.mu.RLock()
	cur := k.session
	k.mu.RUnlock()

	var err error
	if cur != nil {
		err = k.client.SignOut(ctx, cur.AccessToken)
	}
	k.clear(ctx)
	return err
}

// Session returns a copy of the current session, or ErrNoSession when
// signed out.
func (k *Keeper) Session() (*Session, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.session == nil {
		return nil, lingomark.ErrNoSession
	}
	s := *k.session
	return &s, nil
}

// Authenticated reports whether a session is currently held.
func (k *Keeper) Authenticated() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.session != nil
}

// EnsureFresh refreshes the session if it is expired or about to expire.
// With no session it returns ErrNoSession.
func (k *Keeper) EnsureFresh(ctx context.Context) error {
	k.mu.RLock()
	cur := k.session
	k.mu.RUnlock()
	if cur == nil {
		return lingomark.ErrNoSession
	}
	if !cur.Expired(expirySkew) {
		return nil
	}
	return k.Refresh(ctx)
}

// Refresh exchanges the refresh token for a new session. When the auth
// service rejects the token the session is cleared; transport failures keep
// the session so a later attempt can retry.
func (k *Keeper) Refresh(ctx context.Context) error {
	k.refreshMu.Lock()
	defer k.refreshMu.Unlock()

	k.mu.RLock()
	cur := k.session
	k.mu.RUnlock()
	if cur == nil {
		return lingomark.ErrNoSession
	}

	next, err := k.client.RefreshSession(ctx, cur.RefreshToken)
	if err != nil {
		var authErr *lingomark.AuthError
		if errors.As(err, &authErr) && authErr.Status != 0 {
			k.clear(ctx)
		}
		return err
	}

	if next.RefreshToken == "" {
		next.RefreshToken = cur.RefreshToken
	}
	k.setSession(ctx, next)
	return nil
}

// SetRemember toggles remember-me. Turning it off wipes the mirror; turning
// it on mirrors the active session immediately.
func (k *Keeper) SetRemember(ctx context.Context, on bool) {
	k.mu.Lock()
	k.remember = on
	cur := k.session
	k.mu.Unlock()

	if k.mirror == nil {
		return
	}
	if !on {
		if err := k.mirror.ClearSession(ctx); err != nil {
			k.logger.Warn("failed to clear session mirror", "error", err)
		}
		return
	}
	if cur != nil {
		k.mirrorSession(ctx, cur)
	}
}

// Remember reports the current remember-me state.
func (k *Keeper) Remember() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.remember
}

// Start launches the background refresher. It stops when ctx is cancelled
// or Stop is called.
func (k *Keeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(k.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-k.stop:
				return
			case <-ticker.C:
				if !k.Authenticated() {
					continue
				}
				if err := k.Refresh(ctx); err != nil {
					k.logger.Warn("background session refresh failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the background refresher. Safe to call more than once.
func (k *Keeper) Stop() {
	k.stopOnce.Do(func() {
		close(k.stop)
	})
}

// Token returns a fresh access token and the user id for authenticated
// store calls. It refreshes the session first when needed.
func (k *Keeper) Token(ctx context.Context) (string, string, error) {
	if err := k.EnsureFresh(ctx); err != nil {
		return "", "", err
	}
	s, err := k.Session()
	if err != nil {
		return "", "", err
	}
	return s.AccessToken, s.User.ID, nil
}

func (k *Keeper) setSession(ctx context.Context, s *Session) {
	k.mu.Lock()
	k.session = s
	k.mu.Unlock()
	k.mirrorSession(ctx, s)
}

func (k *Keeper) mirrorSession(ctx context.Context, s *Session) {
	if k.mirror == nil || !k.Remember() {
		return
	}
	data, err := json.Marshal(s)
	if err == nil {
		err = k.mirror.SaveSession(ctx, data)
	}
	if err != nil {
		k.logger.Warn("failed to mirror session", "error", err)
	}
}

func (k *Keeper) clear(ctx context.Context) {
	k.mu.Lock()
	k.session = nil
	k.mu.Unlock()
	if k.mirror != nil {
		if err := k.mirror.ClearSession(ctx); err != nil {
			k.logger.Warn("failed to clear mirrored session", "error", err)
		}
	}
}
