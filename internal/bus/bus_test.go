package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openedMsg struct {
	Path string
}

type closedMsg struct{}

func TestPublish_RoutesByType(t *testing.T) {
	b := New()

	var gotOpened []string
	var closedCount int

	Subscribe(b, func(m openedMsg) { gotOpened = append(gotOpened, m.Path) })
	Subscribe(b, func(closedMsg) { closedCount++ })

	Publish(b, openedMsg{Path: "/tmp/a"})
	Publish(b, openedMsg{Path: "/tmp/b"})
	Publish(b, closedMsg{})

	assert.Equal(t, []string{"/tmp/a", "/tmp/b"}, gotOpened)
	assert.Equal(t, 1, closedCount)
}

func TestPublish_InOrderToMultipleSubscribers(t *testing.T) {
	b := New()

	var order []string
	Subscribe(b, func(m openedMsg) { order = append(order, "first:"+m.Path) })
	Subscribe(b, func(m openedMsg) { order = append(order, "second:"+m.Path) })

	Publish(b, openedMsg{Path: "x"})
	Publish(b, openedMsg{Path: "y"})

	// Each publish completes before the next; within a publish,
	// subscribers run in registration order.
	require.Equal(t, []string{"first:x", "second:x", "first:y", "second:y"}, order)
}

func TestSubscription_Cancel(t *testing.T) {
	b := New()

	count := 0
	sub := Subscribe(b, func(openedMsg) { count++ })

	Publish(b, openedMsg{})
	sub.Cancel()
	Publish(b, openedMsg{})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, b.SubscriberCount())

	// Cancel twice is safe.
	sub.Cancel()
}

func TestCancelDuringDelivery(t *testing.T) {
	b := New()

	var sub *Subscription
	count := 0
	sub = Subscribe(b, func(openedMsg) {
		count++
		sub.Cancel()
	})

	Publish(b, openedMsg{})
	Publish(b, openedMsg{})

	assert.Equal(t, 1, count)
}

func TestClose_DropsSubscribersAndMutesPublish(t *testing.T) {
	b := New()

	count := 0
	Subscribe(b, func(openedMsg) { count++ })

	b.Close()
	Publish(b, openedMsg{})

	assert.Equal(t, 0, count)
	assert.Equal(t, 0, b.SubscriberCount())

	// Subscribing after close is inert, not a panic.
	s := Subscribe(b, func(openedMsg) { count++ })
	Publish(b, openedMsg{})
	assert.Equal(t, 0, count)
	s.Cancel()
}
