package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Fixed storage keys, shared with any other client of the same store.
const (
	TokenKey  = "auth-token"
	UserIDKey = "user-id"
)

// ErrNoSession means nobody is logged in.
var ErrNoSession = errors.New("no active session")

// Session is the authenticated state of the client.
type Session struct {
	Token     string
	UserID    string
	StartedAt time.Time
	// ExpiresAt comes from the token's exp claim when it has one. It is
	// informational; the API decides when a token is no longer valid.
	ExpiresAt time.Time
}

// Manager owns the session lifecycle: Start at login, Clear at logout and
// Invalidate when the API rejects the token. It is a thin façade over the
// Store, so several processes sharing the same file see the same session.
type Manager struct {
	store    *Store
	sealer   Sealer
	notifier *Notifier
}

// NewManager wires the manager. sealer defaults to NoopSealer; notifier may
// be nil when nobody listens.
func NewManager(store *Store, sealer Sealer, notifier *Notifier) *Manager {
	if sealer == nil {
		sealer = NoopSealer{}
	}
	return &Manager{store: store, sealer: sealer, notifier: notifier}
}

// Start persists a new session and publishes the change. An empty userID is
// filled from the token's claims when possible.
func (m *Manager) Start(token, userID string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("start session: empty token")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID, _ = tokenClaims(token)
	}

	sealed, err := m.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	values := map[string]string{TokenKey: sealed}
	var stale []string
	if userID != "" {
		values[UserIDKey] = userID
	} else {
		// A user id from an earlier login must not survive.
		stale = append(stale, UserIDKey)
	}
	if err := m.store.Replace(values, stale...); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.publish()
	return nil
}

// Clear removes the session and publishes the change.
func (m *Manager) Clear() error {
	if err := m.Invalidate(); err != nil {
		return err
	}
	m.publish()
	return nil
}

// Invalidate removes the session without publishing.
func (m *Manager) Invalidate() error {
	if err := m.store.Delete(TokenKey, UserIDKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Unauthorized drops the session after the API rejected its token and
// publishes the change once.
func (m *Manager) Unauthorized() {
	if err := m.Invalidate(); err != nil {
		slog.Warn("invalidate session", "error", err)
	}
	m.publish()
}

// Current returns the stored session or ErrNoSession.
func (m *Manager) Current() (*Session, error) {
	sealed, savedAt, err := m.store.Get(TokenKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	token, err := m.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("open token: %w", err)
	}

	userID, _, err := m.store.Get(UserIDKey)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("read session: %w", err)
	}

	_, expires := tokenClaims(token)
	return &Session{Token: token, UserID: userID, StartedAt: savedAt, ExpiresAt: expires}, nil
}

// Token returns the bearer token, or "" without a session.
func (m *Manager) Token() string {
	s, err := m.Current()
	if err != nil {
		return ""
	}
	return s.Token
}

// UserID returns the logged-in user id, or "".
func (m *Manager) UserID() string {
	id, _, err := m.store.Get(UserIDKey)
	if err != nil {
		return ""
	}
	return id
}

// Authenticated reports whether a token is stored.
func (m *Manager) Authenticated() bool {
	_, _, err := m.store.Get(TokenKey)
	return err == nil
}

func (m *Manager) publish() {
	if m.notifier != nil {
		m.notifier.Publish()
	}
}
