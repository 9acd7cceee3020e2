package session

import (
	"log/slog"
	"sync"
)

// AuthChanged is the name of the signal published whenever the
// authentication state may have changed.
const AuthChanged = "auth-changed"

// Notifier is a publish/subscribe signal without payload. Subscribers are
// called synchronously, in subscription order, outside the lock, so they may
// subscribe, unsubscribe or touch the session themselves.
type Notifier struct {
	name string

	mu     sync.Mutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn func()
}

func NewNotifier(name string) *Notifier {
	return &Notifier{name: name}
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

func (n *Notifier) remove(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current subscriber once.
func (n *Notifier) Publish() {
	n.mu.Lock()
	subs := append([]subscription(nil), n.subs...)
	n.mu.Unlock()

	slog.Debug("publish", "signal", n.name, "subscribers", len(subs))
	for _, s := range subs {
		s.fn()
	}
}
