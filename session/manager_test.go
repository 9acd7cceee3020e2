package session

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type fixture struct {
	store    *Store
	manager  *Manager
	clock    *clockwork.FakeClock
	notified *int
}

func newFixture(t *testing.T, sealer Sealer) fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC))
	store, err := NewStore(filepath.Join(t.TempDir(), "session.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	notifier := NewNotifier(AuthChanged)
	count := 0
	notifier.Subscribe(func() { count++ })
	return fixture{
		store:    store,
		manager:  NewManager(store, sealer, notifier),
		clock:    clock,
		notified: &count,
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestStartAndCurrent(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.manager.Current()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, f.manager.Authenticated())

	require.NoError(t, f.manager.Start("opaque-token", "42"))
	assert.Equal(t, 1, *f.notified)

	s, err := f.manager.Current()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", s.Token)
	assert.Equal(t, "42", s.UserID)
	assert.True(t, s.StartedAt.Equal(f.clock.Now()))
	assert.True(t, s.ExpiresAt.IsZero())

	assert.True(t, f.manager.Authenticated())
	assert.Equal(t, "opaque-token", f.manager.Token())
	assert.Equal(t, "42", f.manager.UserID())
}

func TestStartRejectsEmptyToken(t *testing.T) {
	f := newFixture(t, nil)
	assert.Error(t, f.manager.Start("   ", "1"))
	assert.Equal(t, 0, *f.notified)
	assert.False(t, f.manager.Authenticated())
}

func TestStartTakesUserIDFromClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"userId claim", jwt.MapClaims{"userId": "7", "sub": "ana@example.com"}, "7"},
		{"numeric id claim", jwt.MapClaims{"id": float64(12)}, "12"},
		{"subject", jwt.MapClaims{"sub": "99"}, "99"},
		{"email subject ignored", jwt.MapClaims{"sub": "ana@example.com"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			tt.claims["exp"] = exp.Unix()
			token := signedToken(t, tt.claims)

			require.NoError(t, f.manager.Start(token, ""))
			s, err := f.manager.Current()
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.UserID)
			assert.True(t, s.ExpiresAt.Equal(exp), "expires %v", s.ExpiresAt)
		})
	}
}

func TestStartDropsStaleUserID(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.manager.Start("first", "1"))
	require.NoError(t, f.manager.Start("second", ""))

	assert.Equal(t, "second", f.manager.Token())
	assert.Equal(t, "", f.manager.UserID())
}

func TestClearPublishes(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.manager.Start("tok", "1"))
	require.NoError(t, f.manager.Clear())

	assert.Equal(t, 2, *f.notified)
	assert.False(t, f.manager.Authenticated())
	assert.Equal(t, "", f.manager.UserID())

	// Clearing twice is harmless.
	require.NoError(t, f.manager.Clear())
}

func TestInvalidateIsSilent(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.manager.Start("tok", "1"))
	require.NoError(t, f.manager.Invalidate())

	assert.Equal(t, 1, *f.notified)
	assert.Equal(t, "", f.manager.Token())
}

func TestUnauthorizedClearsAndPublishesOnce(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.manager.Start("tok", "1"))
	*f.notified = 0

	f.manager.Unauthorized()
	assert.Equal(t, 1, *f.notified)
	assert.False(t, f.manager.Authenticated())

	// Without a session a 401 still signals.
	f.manager.Unauthorized()
	assert.Equal(t, 2, *f.notified)
}

func TestSealedTokenAtRest(t *testing.T) {
	sealer, err := NewAEADSealer(testKey)
	require.NoError(t, err)
	f := newFixture(t, sealer)

	require.NoError(t, f.manager.Start("secret-token", "3"))

	raw, _, err := f.store.Get(TokenKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-token")
	assert.Equal(t, "secret-token", f.manager.Token())

	// A manager with another key cannot read it.
	other, err := NewAEADSealer(strings.Repeat("ff", 32))
	require.NoError(t, err)
	_, err = NewManager(f.store, other, nil).Current()
	assert.Error(t, err)
}

func TestNilNotifier(t *testing.T) {
	f := newFixture(t, nil)
	m := NewManager(f.store, nil, nil)
	require.NoError(t, m.Start("tok", "1"))
	require.NoError(t, m.Clear())
	m.Unauthorized()
}
