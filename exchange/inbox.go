package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Inbox holds incoming exchange requests. Accepting or rejecting a request
// only removes it from the list; nothing is sent to the API.
type Inbox struct {
	mu       sync.Mutex
	requests []ExchangeRequest
}

func NewInbox(requests []ExchangeRequest) *Inbox {
	return &Inbox{requests: append([]ExchangeRequest(nil), requests...)}
}

// LoadInbox decodes a JSON array of requests, e.g. a local fixture file.
func LoadInbox(r io.Reader) (*Inbox, error) {
	var requests []ExchangeRequest
	if err := json.NewDecoder(r).Decode(&requests); err != nil {
		return nil, fmt.Errorf("decode exchange requests: %w", err)
	}
	return NewInbox(requests), nil
}

// List returns the pending requests.
func (in *Inbox) List() []ExchangeRequest {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]ExchangeRequest(nil), in.requests...)
}

// Accept removes the request and returns it.
func (in *Inbox) Accept(id string) (ExchangeRequest, error) { return in.remove(id) }

// Reject removes the request and returns it.
func (in *Inbox) Reject(id string) (ExchangeRequest, error) { return in.remove(id) }

func (in *Inbox) remove(id string) (ExchangeRequest, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i, req := range in.requests {
		if req.ID == id {
			in.requests = append(in.requests[:i], in.requests[i+1:]...)
			return req, nil
		}
	}
	return ExchangeRequest{}, fmt.Errorf("request %s: %w", id, ErrNotFound)
}
