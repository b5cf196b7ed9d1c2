package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ImportFinished, 1)

	unsub := Subscribe(bus, func(e ImportFinished) {
		received <- e
	})
	defer unsub()

	bus.Publish(ImportFinished{SessionID: "abc", Status: "succeeded"})

	select {
	case got := <-received:
		if got.SessionID != "abc" || got.Status != "succeeded" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusPreservesOrderPerType(t *testing.T) {
	bus := New()
	received := make(chan float64, 10)
	unsub := Subscribe(bus, func(e ImportProgress) {
		received <- e.Percent
	})
	defer unsub()

	for _, p := range []float64{10, 20, 30} {
		bus.Publish(ImportProgress{SessionID: "s", Percent: p})
	}
	for _, want := range []float64{10, 20, 30} {
		select {
		case got := <-received:
			if got != want {
				t.Fatalf("expected %v, got %v", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ImportWarning, 1)

	unsub := Subscribe(bus, func(e ImportWarning) {
		received <- e
	})

	bus.Publish(ImportWarning{Message: "first"})
	<-received

	unsub()

	bus.Publish(ImportWarning{Message: "second"})
	select {
	case <-received:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNilBusIsInert(t *testing.T) {
	var bus *Bus
	bus.Publish(ImportStarted{SessionID: "x"})
	Subscribe(bus, func(ImportStarted) {})()
}

func TestImportFinishedDuration(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := ImportFinished{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	if ev.Duration() != 90*time.Second {
		t.Fatalf("unexpected duration %v", ev.Duration())
	}
	if (ImportFinished{}).Duration() != 0 {
		t.Fatal("zero event should have zero duration")
	}
}
