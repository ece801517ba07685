package main

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBroadcasterSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	s1 := b.Subscribe("session1")
	s2 := b.Subscribe("session1")
	s3 := b.Subscribe("session2")

	if b.SubscriberCount("session1") != 2 {
		t.Fatalf("expected 2 subscribers for session1, got %d", b.SubscriberCount("session1"))
	}
	if b.SubscriberCount("session2") != 1 {
		t.Fatalf("expected 1 subscriber for session2, got %d", b.SubscriberCount("session2"))
	}

	b.Unsubscribe(s1)
	if b.SubscriberCount("session1") != 1 {
		t.Fatalf("expected 1 subscriber for session1 after unsubscribe, got %d", b.SubscriberCount("session1"))
	}

	b.Unsubscribe(s2)
	b.Unsubscribe(s3)
	if b.SubscriberCount("session1") != 0 || b.SubscriberCount("session2") != 0 {
		t.Fatal("expected 0 subscribers after full unsubscribe")
	}
}

func TestBroadcasterDoubleUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	s := b.Subscribe("session1")
	b.Unsubscribe(s)
	b.Unsubscribe(s) // should not panic
}

func TestBroadcast(t *testing.T) {
	b := NewBroadcaster()

	s1 := b.Subscribe("session1")
	s2 := b.Subscribe("session1")
	s3 := b.Subscribe("session2")
	defer func() {
		b.Unsubscribe(s1)
		b.Unsubscribe(s2)
		b.Unsubscribe(s3)
	}()

	b.Broadcast("session1", "hello")

	for name, s := range map[string]*subscriber{"s1": s1, "s2": s2} {
		select {
		case msg := <-s.ch:
			if msg != "hello" {
				t.Fatalf("%s expected 'hello', got %q", name, msg)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s did not receive message", name)
		}
	}

	// s3 is on session2, should not receive.
	select {
	case <-s3.ch:
		t.Fatal("s3 should not receive session1 message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishEncodesEvent(t *testing.T) {
	b := NewBroadcaster()
	s := b.Subscribe("session1")
	defer b.Unsubscribe(s)

	b.Publish("session1", Event{Type: "closed"})

	select {
	case msg := <-s.ch:
		var evt Event
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if evt.Type != "closed" || evt.Tap != nil || evt.Session != nil {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no event published")
	}
}

func TestBroadcastSkipsFullChannel(t *testing.T) {
	b := NewBroadcaster()
	s := b.Subscribe("session1")

	// Fill the channel.
	for range sseChannelBuffer {
		b.Broadcast("session1", "fill")
	}

	// This should not block.
	b.Broadcast("session1", "overflow")

	if got := len(s.ch); got != sseChannelBuffer {
		t.Fatalf("expected %d queued events, got %d", sseChannelBuffer, got)
	}
	b.Unsubscribe(s)
}

func TestBroadcasterConcurrent(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessionID := "session1"
			if i%2 == 0 {
				sessionID = "session2"
			}
			s := b.Subscribe(sessionID)
			b.Publish(sessionID, Event{Type: "tap"})
			b.SubscriberCount(sessionID)
			b.Unsubscribe(s)
		}(i)
	}
	wg.Wait()

	if b.SubscriberCount("session1") != 0 || b.SubscriberCount("session2") != 0 {
		t.Fatal("expected 0 subscribers after concurrent test")
	}
}
