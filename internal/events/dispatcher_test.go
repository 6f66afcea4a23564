package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherPublishesToSubscribers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	event := Event{ID: "e1", Type: EventUserRegistered, UserID: "u1"}
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("handler saw %v, want one event e1", got)
	}
}

func TestDispatcherIgnoresOtherTypes(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventPasswordResetRequested, func(context.Context, Event) error {
		called = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventUserRegistered}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if called {
		t.Fatal("handler invoked for unrelated event type")
	}
}

func TestDispatcherContinuesPastFailingHandler(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	wantErr := errors.New("boom")

	var secondCalled bool
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error { return wantErr })
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		secondCalled = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserRegistered})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Publish error = %v, want %v", err, wantErr)
	}
	if !secondCalled {
		t.Fatal("second handler skipped after first failed")
	}
}
