package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// CatalogAPI is the part of the API the publish flow needs.
type CatalogAPI interface {
	ListTitles(ctx context.Context) ([]BookDefinition, error)
	CreateBook(ctx context.Context, book NewBook) (*Book, error)
}

// Publisher holds the state of the publish-book form: the fetched catalog,
// the search query, the selected title, the condition text and whether a
// submission is in flight.
type Publisher struct {
	api      CatalogAPI
	identity Identity
	clientID string

	mu         sync.Mutex
	defs       []BookDefinition
	loading    bool
	query      string
	selectedID string
	condition  string
	submitting bool
	errMsg     string
	successMsg string
}

// NewPublisher creates the form. clientID may be empty, in which case the
// session's user id is used at submission time.
func NewPublisher(api CatalogAPI, identity Identity, clientID string) *Publisher {
	return &Publisher{api: api, identity: identity, clientID: clientID}
}

// Load fetches the catalog. If ctx is done by the time the fetch returns the
// result is dropped and the form is left untouched.
func (p *Publisher) Load(ctx context.Context) error {
	p.mu.Lock()
	p.loading = true
	p.errMsg = ""
	p.mu.Unlock()

	defs, err := p.api.ListTitles(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		slog.Error("load title catalog", "error", err)
		p.errMsg = MsgCatalogFallback
		return fmt.Errorf("list titles: %w", err)
	}
	p.defs = defs
	return nil
}

// Loading reports whether a catalog fetch is pending.
func (p *Publisher) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// SetQuery updates the search text.
func (p *Publisher) SetQuery(q string) {
	p.mu.Lock()
	p.query = q
	p.mu.Unlock()
}

// Filtered returns the catalog narrowed by the current query.
func (p *Publisher) Filtered() []BookDefinition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Filter(p.defs, p.query)
}

// Select sets the chosen title id. An empty id clears the selection.
func (p *Publisher) Select(id string) {
	p.mu.Lock()
	p.selectedID = strings.TrimSpace(id)
	p.mu.Unlock()
}

// SetCondition sets the free-text condition of the copy.
func (p *Publisher) SetCondition(text string) {
	p.mu.Lock()
	p.condition = text
	p.mu.Unlock()
}

// Reset clears the selection and the condition.
func (p *Publisher) Reset() {
	p.mu.Lock()
	p.selectedID = ""
	p.condition = ""
	p.mu.Unlock()
}

// CanSubmit reports whether a title is selected, the condition is not blank
// and no submission is in flight.
func (p *Publisher) CanSubmit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canSubmitLocked()
}

func (p *Publisher) canSubmitLocked() bool {
	return p.selectedID != "" && strings.TrimSpace(p.condition) != "" && !p.submitting
}

// Submitting reports whether a submission is in flight.
func (p *Publisher) Submitting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitting
}

// Error returns the message of the last failed load or submission.
func (p *Publisher) Error() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errMsg
}

// Success returns the message of the last successful submission.
func (p *Publisher) Success() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.successMsg
}

// Submit posts the selected title as a new owned book. It returns
// ErrCannotSubmit without side effects when CanSubmit is false.
func (p *Publisher) Submit(ctx context.Context) (*Book, error) {
	p.mu.Lock()
	if !p.canSubmitLocked() {
		p.mu.Unlock()
		return nil, ErrCannotSubmit
	}
	p.submitting = true
	p.successMsg = ""
	p.errMsg = ""
	payload := p.payloadLocked()
	p.mu.Unlock()

	book, err := p.api.CreateBook(ctx, payload)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitting = false
	if err != nil {
		p.errMsg = UserMessage(err, MsgPublishFallback)
		return nil, fmt.Errorf("create book: %w", err)
	}
	p.successMsg = MsgPublished
	p.selectedID = ""
	p.condition = ""
	return book, nil
}

// payloadLocked composes the request body. A selected id missing from the
// catalog still posts, with only the id in the snapshot.
func (p *Publisher) payloadLocked() NewBook {
	def, ok := FindByID(p.defs, p.selectedID)
	if !ok {
		def = BookDefinition{ID: p.selectedID}
	}
	if def.ID == "" {
		def.ID = p.selectedID
	}

	clientID := strings.TrimSpace(p.clientID)
	if clientID == "" && p.identity != nil {
		clientID = strings.TrimSpace(p.identity.UserID())
	}

	return NewBook{
		State:            strings.TrimSpace(p.condition),
		StateRequest:     nil,
		BookDefinitionID: p.selectedID,
		ClientID:         clientID,
		BookDefinition:   def,
	}
}
