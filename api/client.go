// Package api is the HTTP client for the book exchange API. It attaches the
// session's bearer token to every request except public catalog and client
// lookups, and signals listeners whenever the API answers 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default route paths.
const (
	DefaultBaseURL      = "http://localhost:8080"
	ClientsPath         = "/api/v1/clients"
	DefaultTitlesPath   = "/api/v1/titles"
	DefaultBooksPath    = "/api/v1/books"
	DefaultLoginPath    = "/api/v1/auth/login"
	DefaultRegisterPath = "/api/v1/auth/register"
)

// TokenSource yields the current bearer token, "" when logged out.
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler is called once for every 401 response, before the
// error is returned to the caller.
type UnauthorizedHandler interface {
	Unauthorized()
}

// Options configures a Client. Zero paths fall back to the defaults.
type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	Tokens       TokenSource
	Unauthorized UnauthorizedHandler

	TitlesPath   string
	BooksPath    string
	LoginPath    string
	RegisterPath string
}

// Client talks JSON to the API.
type Client struct {
	baseURL      string
	http         *http.Client
	tokens       TokenSource
	unauthorized UnauthorizedHandler

	titlesPath   string
	booksPath    string
	loginPath    string
	registerPath string
}

// New creates a client. Without an HTTPClient one is built with
// NewHTTPClient and no timeout.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		if httpClient, err = NewHTTPClient(0); err != nil {
			return nil, err
		}
	}
	return &Client{
		baseURL:      base,
		http:         httpClient,
		tokens:       opts.Tokens,
		unauthorized: opts.Unauthorized,
		titlesPath:   orDefault(opts.TitlesPath, DefaultTitlesPath),
		booksPath:    orDefault(opts.BooksPath, DefaultBooksPath),
		loginPath:    orDefault(opts.LoginPath, DefaultLoginPath),
		registerPath: orDefault(opts.RegisterPath, DefaultRegisterPath),
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// IsPublicGet reports whether a request needs no Authorization header: GETs
// of the client listing, anything under /api/v1/clients/, and the title
// catalog.
func IsPublicGet(method, path string) bool {
	if !strings.EqualFold(method, http.MethodGet) {
		return false
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.Contains(path, ClientsPath+"/") ||
		strings.HasSuffix(path, ClientsPath) ||
		strings.Contains(path, DefaultTitlesPath)
}

// do sends one request. in, when non-nil, is sent as the JSON body; out, when
// non-nil, receives the decoded JSON response, or the raw body when it is a
// *[]byte. Non-2xx responses come back
// as *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	c.authorize(req, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	slog.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusUnauthorized && c.unauthorized != nil {
		c.unauthorized.Unauthorized()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(method, path, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request, path string) {
	if IsPublicGet(req.Method, path) || c.tokens == nil {
		return
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
