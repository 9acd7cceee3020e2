package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExchange is a minimal book exchange API. It accepts "tok" as the only
// valid bearer token.
type fakeExchange struct {
	mu        sync.Mutex
	published []map[string]any
	expired   bool
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	write := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authorized := r.Header.Get("Authorization") == "Bearer tok"

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/auth/login":
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			write(http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		write(http.StatusOK, map[string]any{"token": "tok", "userId": 5})
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/auth/register":
		write(http.StatusCreated, map[string]any{"id": 5})
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/titles":
		write(http.StatusOK, []map[string]any{
			{"id": 1, "title": "Dune", "author": "Frank Herbert", "editorial": "Ace", "isbn": "9780441013593"},
			{"id": 2, "title": "Emma", "author": "Jane Austen", "editorial": "Penguin", "isbn": "9780141439587"},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/books":
		f.mu.Lock()
		defer f.mu.Unlock()
		if !authorized || f.expired {
			write(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.published = append(f.published, body)
		write(http.StatusCreated, map[string]any{"id": 77, "state": body["state"]})
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/clients/5":
		write(http.StatusOK, map[string]any{"id": 5, "name": "Ana", "email": "ana@example.com", "address": "Calle 1"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/clients/5/books":
		write(http.StatusOK, []map[string]any{
			{"id": 77, "state": "like new", "bookDefinition": map[string]any{"id": 1, "title": "Dune", "author": "Frank Herbert"}},
		})
	default:
		write(http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (f *fakeExchange) expire() {
	f.mu.Lock()
	f.expired = true
	f.mu.Unlock()
}

func (f *fakeExchange) publishedBooks() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.published...)
}

type harness struct {
	api       *fakeExchange
	apiURL    string
	sessionDB string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeExchange{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return &harness{
		api:       api,
		apiURL:    srv.URL,
		sessionDB: filepath.Join(t.TempDir(), "session.db"),
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, c := newRootCmd()
	defer c.Close()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--api-url", h.apiURL, "--session-db", h.sessionDB}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoginPublishProfileLogout(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")

	out, err = h.run(t, "", "login", "--email", "ana@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as client 5.")

	out, err = h.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as client 5")

	out, err = h.run(t, "", "titles", "austen")
	require.NoError(t, err)
	assert.Contains(t, out, "Emma")
	assert.NotContains(t, out, "Dune")

	out, err = h.run(t, "", "publish", "--title", "1", "--condition", " like new ")
	require.NoError(t, err)
	assert.Contains(t, out, "Book published successfully!")
	assert.Contains(t, out, "Book ID: 77")
	published := h.api.publishedBooks()
	require.Len(t, published, 1)
	assert.Equal(t, "like new", published[0]["state"])
	assert.Equal(t, "1", published[0]["bookDefinitionID"])
	assert.Equal(t, "5", published[0]["clientId"])
	assert.Contains(t, published[0], "stateRequest")
	assert.Nil(t, published[0]["stateRequest"])

	out, err = h.run(t, "", "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "You have not exchanged any books yet.")

	out, err = h.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	out, err = h.run(t, "", "profile")
	require.Error(t, err)
	assert.Contains(t, out, "No active session")
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "login", "--email", "ana@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, out, "Bad credentials")

	out, _ = h.run(t, "", "status")
	assert.Contains(t, out, "Not logged in.")
}

func TestPublishUnauthorizedClearsSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "--email", "ana@example.com", "--password", "secret")
	require.NoError(t, err)

	h.api.expire()
	out, err := h.run(t, "", "publish", "--title", "2", "--condition", "good")
	require.Error(t, err)
	assert.Contains(t, out, "Unauthorized")

	out, _ = h.run(t, "", "status")
	assert.Contains(t, out, "Not logged in.")
}

func TestPublishRequiresTitleAndCondition(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "publish", "--title", "2", "--condition", "   ")
	require.Error(t, err)
	assert.Empty(t, h.api.publishedBooks())
}

func TestRegisterPromptsAndLogsIn(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "secret\nsecret\n", "register", "--name", "Ana", "--address", "Calle 1", "--email", "ana@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "User registered successfully.")

	out, _ = h.run(t, "", "status")
	assert.Contains(t, out, "Logged in as client 5")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "secret\nother\n", "register", "--name", "Ana", "--address", "Calle 1", "--email", "ana@example.com")
	require.Error(t, err)
	assert.Contains(t, out, "Passwords do not match.")
}

func TestShellSession(t *testing.T) {
	h := newHarness(t)
	requests := filepath.Join(t.TempDir(), "requests.json")
	require.NoError(t, os.WriteFile(requests, []byte(`[{"id":1,"requester":"Luis","book":"Dune"},{"id":2,"requester":"Marta","book":"Emma"}]`), 0o600))

	script := strings.Join([]string{
		"login",
		"ana@example.com",
		"secret",
		"titles",
		"search",
		"dune",
		"select",
		"1",
		"condition",
		"worn cover",
		"publish",
		"requests",
		"accept",
		"1",
		"reject",
		"9",
		"logout",
		"exit",
	}, "\n") + "\n"

	out, err := h.run(t, script, "--requests", requests, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "[signed in]")
	assert.Contains(t, out, "Ready to publish.")
	assert.Contains(t, out, "Book published successfully!")
	assert.Contains(t, out, "Marta")
	assert.Contains(t, out, "Exchange accepted for request #1")
	assert.Contains(t, out, "exchange request not found")
	assert.Contains(t, out, "[signed out]")
	assert.Contains(t, out, "Goodbye!")

	published := h.api.publishedBooks()
	require.Len(t, published, 1)
	assert.Equal(t, "worn cover", published[0]["state"])
}
