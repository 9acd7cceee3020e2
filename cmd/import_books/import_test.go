package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"book-exchange/api"
	"book-exchange/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// catalogServer serves two titles and records published books. Once
// rejectAfter books have been accepted it answers 401.
type catalogServer struct {
	rejectAfter int

	mu        sync.Mutex
	published []map[string]any
}

func (c *catalogServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == api.DefaultTitlesPath:
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "title": "Rayuela", "author": "Julio Cortázar", "isbn": "978-84-376-0474-3"},
			{"id": 2, "title": "Ficciones", "author": "Jorge Luis Borges", "isbn": "9788499089515"},
		})
	case r.Method == http.MethodPost && r.URL.Path == api.DefaultBooksPath:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.rejectAfter > 0 && len(c.published) >= c.rejectAfter {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.published = append(c.published, body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 100 + len(c.published)})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (c *catalogServer) books() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.published...)
}

func loadedPublisher(t *testing.T, srv *httptest.Server) *exchange.Publisher {
	t.Helper()
	client, err := api.New(api.Options{BaseURL: srv.URL, HTTPClient: srv.Client(), Tokens: staticToken("tok")})
	require.NoError(t, err)
	pub := exchange.NewPublisher(client, nil, "7")
	require.NoError(t, pub.Load(context.Background()))
	return pub
}

func TestRunPublishesMatchingRows(t *testing.T) {
	backend := &catalogServer{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	pub := loadedPublisher(t, srv)

	input := strings.Join([]string{
		"isbn,condition",
		"# owned copies",
		"9788437604743, like new",
		"978-84-9908-951-5,underlined",
		"0000000000,good",
		"9788499089515,   ",
		"lonely-field",
		"",
	}, "\n")
	var out bytes.Buffer
	ok, failed := run(context.Background(), strings.NewReader(input), pub, &out)

	assert.Equal(t, 2, ok)
	assert.Equal(t, 2, failed)
	assert.Contains(t, out.String(), "Publishing: Rayuela - Julio Cortázar (978-84-376-0474-3)... SUCCESS (ID: 101)")
	assert.Contains(t, out.String(), "SUCCESS (ID: 102)")
	assert.Contains(t, out.String(), "ISBN 0000000000")
	assert.Contains(t, out.String(), "ERROR - condition is empty")

	books := backend.books()
	require.Len(t, books, 2)
	assert.Equal(t, "1", books[0]["bookDefinitionID"])
	assert.Equal(t, "like new", books[0]["state"])
	assert.Equal(t, "7", books[0]["clientId"])
	assert.Equal(t, "2", books[1]["bookDefinitionID"])
	assert.Equal(t, "underlined", books[1]["state"])
}

func TestRunStopsOnUnauthorized(t *testing.T) {
	backend := &catalogServer{rejectAfter: 1}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	pub := loadedPublisher(t, srv)

	input := "9788437604743,good\n9788499089515,good\n9788437604743,worn\n"
	var out bytes.Buffer
	ok, failed := run(context.Background(), strings.NewReader(input), pub, &out)

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "ERROR - Unauthorized")
	assert.Contains(t, out.String(), exchange.MsgSessionExpired)
	assert.Len(t, backend.books(), 1)
}

func TestRunReportsMalformedCSV(t *testing.T) {
	srv := httptest.NewServer(&catalogServer{})
	t.Cleanup(srv.Close)
	pub := loadedPublisher(t, srv)

	var out bytes.Buffer
	ok, failed := run(context.Background(), strings.NewReader("\"9788437604743,good\n"), pub, &out)

	assert.Equal(t, 0, ok)
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "Line 1: ERROR")
}
