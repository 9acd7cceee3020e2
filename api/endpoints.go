package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"book-exchange/exchange"
)

// ListClients returns every registered client.
func (c *Client) ListClients(ctx context.Context) ([]exchange.Client, error) {
	var clients []exchange.Client
	if err := c.do(ctx, http.MethodGet, ClientsPath, nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// GetClient fetches one client's profile.
func (c *Client) GetClient(ctx context.Context, id string) (*exchange.Client, error) {
	var client exchange.Client
	if err := c.do(ctx, http.MethodGet, ClientsPath+"/"+url.PathEscape(id), nil, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// ClientBooks lists the copies a client owns.
func (c *Client) ClientBooks(ctx context.Context, id string) ([]exchange.Book, error) {
	var books []exchange.Book
	if err := c.do(ctx, http.MethodGet, ClientsPath+"/"+url.PathEscape(id)+"/books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// ListTitles returns the shared catalog of book definitions.
func (c *Client) ListTitles(ctx context.Context) ([]exchange.BookDefinition, error) {
	var catalog exchange.Catalog
	if err := c.do(ctx, http.MethodGet, c.titlesPath, nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// CreateBook publishes an owned copy. When the API answers with an empty
// body the returned book mirrors the payload.
func (c *Client) CreateBook(ctx context.Context, book exchange.NewBook) (*exchange.Book, error) {
	var created *exchange.Book
	if err := c.do(ctx, http.MethodPost, c.booksPath, book, &created); err != nil {
		return nil, err
	}
	if created == nil {
		created = &exchange.Book{
			BookDefinition: book.BookDefinition,
			ClientID:       book.ClientID,
			State:          book.State,
		}
	}
	return created, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg exchange.Registration) error {
	return c.do(ctx, http.MethodPost, c.registerPath, reg, nil)
}

// Login exchanges credentials for a bearer token. The API may answer with a
// JSON object or with the bare token as text.
func (c *Client) Login(ctx context.Context, creds exchange.Credentials) (*exchange.AuthResult, error) {
	var body []byte
	if err := c.do(ctx, http.MethodPost, c.loginPath, creds, &body); err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var res exchange.AuthResult
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("decode login response: %w", err)
		}
		return &res, nil
	}
	token := strings.Trim(string(body), `"`)
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	return &exchange.AuthResult{Token: token}, nil
}
