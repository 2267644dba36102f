package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelAutoDismisses(t *testing.T) {
	dismissed := make(chan Toast, 1)
	c := NewChannel(ChannelOptions{
		DismissAfter: 10 * time.Millisecond,
		Dismissed:    func(t Toast) { dismissed <- t },
	})
	defer c.Close()

	c.Notify(Toast{Message: "Diagnostic complete!", Level: Success})
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "Diagnostic complete!", cur.Message)

	select {
	case got := <-dismissed:
		assert.Equal(t, "Diagnostic complete!", got.Message)
	case <-time.After(time.Second):
		t.Fatal("toast was not dismissed")
	}
	_, ok = c.Current()
	assert.False(t, ok)
}

func TestChannelShowsOneToastAtATime(t *testing.T) {
	c := NewChannel(ChannelOptions{DismissAfter: time.Hour})
	defer c.Close()

	c.Notify(Toast{Message: "first", Level: Info})
	c.Notify(Toast{Message: "second", Level: Warning})

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "second", cur.Message)

	var events []Event
	for len(events) < 3 {
		select {
		case e := <-c.Events():
			events = append(events, e)
		case <-time.After(time.Second):
			t.Fatalf("expected 3 events, got %d", len(events))
		}
	}
	assert.Equal(t, Event{Toast: Toast{Message: "first", Level: Info}}, events[0])
	assert.Equal(t, Event{Toast: Toast{Message: "first", Level: Info}, Dismissed: true}, events[1])
	assert.Equal(t, Event{Toast: Toast{Message: "second", Level: Warning}}, events[2])
}

func TestChannelDismissAndClose(t *testing.T) {
	c := NewChannel(ChannelOptions{DismissAfter: time.Hour})
	c.Notify(Toast{Message: "x", Level: Error})
	c.Dismiss()
	_, ok := c.Current()
	assert.False(t, ok)

	c.Close()
	c.Close()
	c.Notify(Toast{Message: "after close"})
	_, ok = c.Current()
	assert.False(t, ok)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)
	r.Notify(Toast{Message: "a"})
	r.Notify(Toast{Message: "b"})
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last.Message)
	assert.Len(t, r.Toasts(), 2)
}
