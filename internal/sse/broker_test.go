package sse

import (
	"strings"
	"testing"
	"time"
)

func recvTimeout(t *testing.T, ch chan []byte, d time.Duration) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(msg)
	case <-time.After(d):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.Publish(Event{Type: "ping", Data: map[string]string{"k": "v"}})

	msg := recvTimeout(t, ch, 2*time.Second)
	if !strings.Contains(msg, "event: ping") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"k":"v"`) {
		t.Errorf("msg = %q", msg)
	}
}

func TestPublishPromptEvent(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.PublishPromptEvent("created", "review")

	msg := recvTimeout(t, ch, 2*time.Second)
	if !strings.Contains(msg, "event: prompt.created") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"name":"review"`) {
		t.Errorf("msg = %q", msg)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}

	b.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Error("channel not closed")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("client channel should be closed after broker close")
	}
	// Operations after close must not panic or block.
	b.Publish(Event{Type: "late"})
	b.PublishPromptEvent("deleted", "x")
	if n := b.ClientCount(); n != 0 {
		t.Errorf("count = %d after close", n)
	}
}
