package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierOrderAndUnsubscribe(t *testing.T) {
	n := NewNotifier(AuthChanged)
	var calls []string
	unsubA := n.Subscribe(func() { calls = append(calls, "a") })
	n.Subscribe(func() { calls = append(calls, "b") })

	n.Publish()
	assert.Equal(t, []string{"a", "b"}, calls)

	unsubA()
	unsubA()
	calls = nil
	n.Publish()
	assert.Equal(t, []string{"b"}, calls)
}

func TestNotifierSubscriberMayUnsubscribeItself(t *testing.T) {
	n := NewNotifier(AuthChanged)
	count := 0
	var unsub func()
	unsub = n.Subscribe(func() {
		count++
		unsub()
	})

	n.Publish()
	n.Publish()
	assert.Equal(t, 1, count)
}
