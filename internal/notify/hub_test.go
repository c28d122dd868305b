package notify

import (
	"testing"

	"clipforge/internal/library"
)

func TestPublishReachesOnlyTenantSubscribers(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	aliceCh, cancelAlice := hub.Subscribe("alice")
	defer cancelAlice()
	bobCh, cancelBob := hub.Subscribe("bob")
	defer cancelBob()

	hub.Publish("alice", ProgressEvent("item-1", 33))

	select {
	case evt := <-aliceCh:
		if evt.ItemID != "item-1" || evt.Progress != 33 {
			t.Fatalf("unexpected event: %#v", evt)
		}
	default:
		t.Fatal("alice should have received the event")
	}

	select {
	case evt := <-bobCh:
		t.Fatalf("bob received foreign event: %#v", evt)
	default:
	}
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()
	// Completes immediately even though nobody listens.
	hub.Publish("ghost", ProgressEvent("item-1", 50))
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	ch, cancel := hub.Subscribe("alice")
	defer cancel()

	hub.Publish("alice", ProgressEvent("item-1", 10))
	hub.Publish("alice", ProgressEvent("item-1", 20)) // dropped, buffer full

	first := <-ch
	if first.Progress != 10 {
		t.Fatalf("expected first event, got %#v", first)
	}
	select {
	case evt := <-ch:
		t.Fatalf("expected second event dropped, got %#v", evt)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	ch, cancel := hub.Subscribe("alice")
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatal("expected channel closed after cancel")
	}
	if hub.SubscriberCount("alice") != 0 {
		t.Fatal("expected subscriber removed")
	}
}

func TestCloseTerminatesSubscribers(t *testing.T) {
	hub := NewHub(1)
	ch, _ := hub.Subscribe("alice")
	hub.Close()

	if _, open := <-ch; open {
		t.Fatal("expected channel closed after hub close")
	}
	// Publishing after close is a no-op.
	hub.Publish("alice", ProgressEvent("item-1", 1))
}

func TestStatusEventPartialPayload(t *testing.T) {
	item := &library.Item{
		ID:          "item-1",
		Status:      library.StatusFailed,
		Sensitivity: library.VerdictUnchecked,
		Progress:    40,
	}
	evt := StatusEvent(item)
	if evt.Sensitivity != "" {
		t.Fatalf("unchecked sensitivity should be omitted, got %q", evt.Sensitivity)
	}
	if evt.Status != library.StatusFailed || evt.Progress != 40 {
		t.Fatalf("unexpected event: %#v", evt)
	}

	item.Status = library.StatusFlagged
	item.Sensitivity = library.VerdictFlagged
	item.Progress = 100
	evt = StatusEvent(item)
	if evt.Sensitivity != library.VerdictFlagged || evt.Progress != 100 {
		t.Fatalf("unexpected event: %#v", evt)
	}
}
