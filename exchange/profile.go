package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ProfileAPI is the part of the API the profile view needs.
type ProfileAPI interface {
	GetClient(ctx context.Context, id string) (*Client, error)
	ClientBooks(ctx context.Context, id string) ([]Book, error)
}

// ProfileInfo is the personal information section of the profile.
type ProfileInfo struct {
	Name    string
	Email   string
	Address string
}

// Profile is the state of the profile view.
type Profile struct {
	api      ProfileAPI
	identity Identity

	mu       sync.Mutex
	loaded   bool
	info     ProfileInfo
	books    []Book
	swapped  []Book
	errMsg   string
	requests *Inbox
}

// NewProfile creates the view. requests may be nil for an empty inbox.
func NewProfile(api ProfileAPI, identity Identity, requests *Inbox) *Profile {
	if requests == nil {
		requests = NewInbox(nil)
	}
	return &Profile{api: api, identity: identity, requests: requests}
}

// Load fetches the profile and then the owned books. A profile failure is
// returned and recorded as the view's message; a books failure is logged and
// leaves the list empty. Once ctx is done nothing more is recorded. Load only
// runs once per view.
func (p *Profile) Load(ctx context.Context) error {
	p.mu.Lock()
	if p.loaded {
		p.mu.Unlock()
		return nil
	}
	p.loaded = true
	p.mu.Unlock()

	err := p.load(ctx)
	if err != nil && ctx.Err() == nil {
		p.mu.Lock()
		p.errMsg = ProfileMessage(err)
		p.mu.Unlock()
	}
	return err
}

func (p *Profile) load(ctx context.Context) error {
	userID := ""
	if p.identity != nil {
		userID = strings.TrimSpace(p.identity.UserID())
	}
	if userID == "" {
		return ErrSignedOut
	}

	client, err := p.api.GetClient(ctx, userID)
	if err != nil {
		return fmt.Errorf("get client %s: %w", userID, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.mu.Lock()
	p.info = ProfileInfo{Name: client.Name, Email: client.Email, Address: client.Address}
	p.mu.Unlock()

	books, err := p.api.ClientBooks(ctx, userID)
	if err != nil {
		slog.Debug("owned books unavailable", "user_id", userID, "error", err)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if books == nil {
		books = []Book{}
	}

	p.mu.Lock()
	p.books = books
	p.mu.Unlock()
	return nil
}

// Info returns the personal information.
func (p *Profile) Info() ProfileInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// Books returns the published books.
func (p *Profile) Books() []Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Book(nil), p.books...)
}

// Exchanged returns books already swapped. The API offers no source for
// these yet, so the list is always empty.
func (p *Profile) Exchanged() []Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Book(nil), p.swapped...)
}

// Error returns the message of a failed load, or "".
func (p *Profile) Error() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errMsg
}

// Requests returns the exchange request inbox.
func (p *Profile) Requests() *Inbox { return p.requests }
