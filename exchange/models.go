package exchange

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Client is a registered user of the platform as returned by the API.
type Client struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Password string `json:"-"` // write-only, see Registration
	Roles    string `json:"roles,omitempty"`
}

// UnmarshalJSON accepts numeric or string ids.
func (c *Client) UnmarshalJSON(data []byte) error {
	type alias Client
	var raw struct {
		alias
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Client(raw.alias)
	c.ID = rawID(raw.ID)
	return nil
}

// BookDefinition is a catalog entry ("title") independent of any owned copy.
type BookDefinition struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Editorial string `json:"editorial"`
	ISBN      string `json:"isbn"`
}

// UnmarshalJSON reads the id from "id", "idBookDefinition" or
// "id_book_definition", in that order.
func (d *BookDefinition) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		AltID     json.RawMessage `json:"idBookDefinition"`
		SnakeID   json.RawMessage `json:"id_book_definition"`
		Title     string          `json:"title"`
		Author    string          `json:"author"`
		Editorial string          `json:"editorial"`
		ISBN      string          `json:"isbn"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = BookDefinition{
		Title:     raw.Title,
		Author:    raw.Author,
		Editorial: raw.Editorial,
		ISBN:      raw.ISBN,
	}
	for _, candidate := range []json.RawMessage{raw.ID, raw.AltID, raw.SnakeID} {
		if id := rawID(candidate); id != "" {
			d.ID = id
			break
		}
	}
	return nil
}

// Book is an owned, exchangeable copy of a BookDefinition.
type Book struct {
	ID             string         `json:"id"`
	BookDefinition BookDefinition `json:"bookDefinition"`
	ClientID       string         `json:"clientId"`
	State          string         `json:"state"`
}

// UnmarshalJSON accepts numeric or string ids.
func (b *Book) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             json.RawMessage `json:"id"`
		BookDefinition BookDefinition  `json:"bookDefinition"`
		ClientID       json.RawMessage `json:"clientId"`
		State          string          `json:"state"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Book{
		ID:             rawID(raw.ID),
		BookDefinition: raw.BookDefinition,
		ClientID:       rawID(raw.ClientID),
		State:          raw.State,
	}
	return nil
}

// ExchangeRequest is a proposal from another user to swap a book. It only
// exists in local view state and is never sent to the API.
type ExchangeRequest struct {
	ID        string `json:"id"`
	Requester string `json:"requester"`
	Book      string `json:"book"`
}

// UnmarshalJSON accepts numeric or string ids.
func (r *ExchangeRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Requester string          `json:"requester"`
		Book      string          `json:"book"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ExchangeRequest{ID: rawID(raw.ID), Requester: raw.Requester, Book: raw.Book}
	return nil
}

// Catalog decodes the title listing, which the API returns either as a bare
// array or wrapped as {"items": [...]}.
type Catalog []BookDefinition

func (c *Catalog) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var defs []BookDefinition
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return err
		}
		*c = defs
		return nil
	}
	var wrapped struct {
		Items []BookDefinition `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	*c = wrapped.Items
	return nil
}

// NewBook is the payload posted to create an owned book. It carries both the
// reference id and a denormalised snapshot of the selected definition.
type NewBook struct {
	State            string         `json:"state"`
	StateRequest     *string        `json:"stateRequest"`
	BookDefinitionID string         `json:"bookDefinitionID"`
	ClientID         string         `json:"clientId,omitempty"`
	BookDefinition   BookDefinition `json:"bookDefinition"`
}

// Registration is the payload for creating a new account.
type Registration struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Roles    string `json:"roles"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is what a successful login yields. UserID may be empty when the
// API only returns a token.
type AuthResult struct {
	Token  string
	UserID string
}

// UnmarshalJSON accepts "token" or "accessToken", and a user id under
// "userId", "id" or a nested "user.id".
func (a *AuthResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token       string          `json:"token"`
		AccessToken string          `json:"accessToken"`
		UserID      json.RawMessage `json:"userId"`
		ID          json.RawMessage `json:"id"`
		User        *struct {
			ID json.RawMessage `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Token = raw.Token
	if a.Token == "" {
		a.Token = raw.AccessToken
	}
	a.UserID = rawID(raw.UserID)
	if a.UserID == "" {
		a.UserID = rawID(raw.ID)
	}
	if a.UserID == "" && raw.User != nil {
		a.UserID = rawID(raw.User.ID)
	}
	return nil
}

// rawID renders a JSON string or number as a plain string.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
