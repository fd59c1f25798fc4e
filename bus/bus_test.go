package bus_test

import (
	"context"
	"testing"

	"github.com/hammywammy/oslira-core/bus"
	"github.com/hammywammy/oslira-core/observability"
)

func TestPublishOrder(t *testing.T) {
	b := bus.New()
	var order []string

	b.Subscribe("leads.updated", func(_ context.Context, _ string, _ any) {
		order = append(order, "first")
	})
	b.Subscribe("leads.updated", func(_ context.Context, _ string, _ any) {
		order = append(order, "second")
	})

	b.Publish(context.Background(), "leads.updated", nil)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("delivery order = %v, want [first second]", order)
	}
}

func TestPublishPayload(t *testing.T) {
	b := bus.New()
	var got any

	b.Subscribe("auth.signin", func(_ context.Context, topic string, data any) {
		if topic != "auth.signin" {
			t.Errorf("handler topic = %q, want auth.signin", topic)
		}
		got = data
	})

	b.Publish(context.Background(), "auth.signin", 42)

	if got != 42 {
		t.Errorf("handler data = %v, want 42", got)
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	b := bus.New()
	// Must not panic or block.
	b.Publish(context.Background(), "nobody.listening", "data")
}

func TestUnsubscribe(t *testing.T) {
	b := bus.New()
	var calls int

	sub := b.Subscribe("topic", func(_ context.Context, _ string, _ any) {
		calls++
	})
	b.Subscribe("topic", func(_ context.Context, _ string, _ any) {})

	if !b.Unsubscribe(sub) {
		t.Fatalf("Unsubscribe() = false, want true")
	}
	if b.Unsubscribe(sub) {
		t.Errorf("second Unsubscribe() = true, want false")
	}

	b.Publish(context.Background(), "topic", nil)
	if calls != 0 {
		t.Errorf("unsubscribed handler called %d times, want 0", calls)
	}
	if got := b.SubscriberCount("topic"); got != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", got)
	}
}

func TestHandlerPanicIsolated(t *testing.T) {
	capture := observability.NewCaptureObserver()
	b := bus.New(bus.WithObserver(capture))

	var delivered bool
	b.Subscribe("topic", func(_ context.Context, _ string, _ any) {
		panic("handler blew up")
	})
	b.Subscribe("topic", func(_ context.Context, _ string, _ any) {
		delivered = true
	})

	b.Publish(context.Background(), "topic", nil)

	if !delivered {
		t.Errorf("second handler not invoked after first panicked")
	}
	if !capture.Has(bus.EventHandlerPanic) {
		t.Errorf("panic event not reported to observer")
	}
}

func TestSubscribeDuringDispatch(t *testing.T) {
	b := bus.New()
	var lateCalls int

	b.Subscribe("topic", func(_ context.Context, _ string, _ any) {
		b.Subscribe("topic", func(_ context.Context, _ string, _ any) {
			lateCalls++
		})
	})

	b.Publish(context.Background(), "topic", nil)
	if lateCalls != 0 {
		t.Errorf("handler subscribed during dispatch was invoked in the same publish")
	}

	b.Publish(context.Background(), "topic", nil)
	if lateCalls != 1 {
		t.Errorf("late handler calls = %d after second publish, want 1", lateCalls)
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	b := bus.New()
	var second bus.Subscription
	var secondCalls int

	b.Subscribe("topic", func(_ context.Context, _ string, _ any) {
		b.Unsubscribe(second)
	})
	second = b.Subscribe("topic", func(_ context.Context, _ string, _ any) {
		secondCalls++
	})

	// Snapshot semantics: the in-flight publish still delivers to the handler
	// removed mid-dispatch.
	b.Publish(context.Background(), "topic", nil)
	if secondCalls != 1 {
		t.Errorf("secondCalls = %d after first publish, want 1", secondCalls)
	}

	b.Publish(context.Background(), "topic", nil)
	if secondCalls != 1 {
		t.Errorf("secondCalls = %d after second publish, want 1", secondCalls)
	}
}
