package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/hitushen/localbrowser/internal/models"
)

func receive(t *testing.T, ch <-chan []byte) Event {
	t.Helper()
	select {
	case data := <-ch:
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch, cleanup := b.Subscribe()
	defer cleanup()

	b.Publish(Event{Type: EventClients, Count: 1, Clients: []models.ClientConn{{RemoteAddr: "10.0.0.2:5123"}}})
	evt := receive(t, ch)
	if evt.Type != EventClients || evt.Count != 1 || evt.Clients[0].RemoteAddr != "10.0.0.2:5123" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestBrokerReplaysLatestToNewSubscribers(t *testing.T) {
	b := NewBroker()
	b.Publish(Event{Type: EventClients, Count: 2})

	ch, cleanup := b.Subscribe()
	defer cleanup()
	if evt := receive(t, ch); evt.Count != 2 {
		t.Fatalf("replayed event %+v", evt)
	}
}

func TestBrokerCleanup(t *testing.T) {
	b := NewBroker()
	_, cleanup := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", b.Subscribers())
	}
	cleanup()
	cleanup()
	if b.Subscribers() != 0 {
		t.Fatalf("subscribers after cleanup = %d", b.Subscribers())
	}
	b.Publish(Event{Type: EventClients})
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	_, cleanup := b.Subscribe()
	defer cleanup()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: EventClients, Count: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestTrackerConnState(t *testing.T) {
	var seen [][]models.ClientConn
	tr := NewTracker(func(c []models.ClientConn) { seen = append(seen, c) })

	a1, a2 := net.Pipe()
	b1, b2 := net.Pipe()
	defer a2.Close()
	defer b2.Close()

	tr.ConnState(a1, http.StateNew)
	tr.ConnState(a1, http.StateActive)
	tr.ConnState(b1, http.StateNew)
	if got := len(tr.Clients()); got != 2 {
		t.Fatalf("clients = %d, want 2", got)
	}

	tr.ConnState(a1, http.StateClosed)
	tr.ConnState(a1, http.StateClosed)
	tr.ConnState(b1, http.StateHijacked)

	if got := len(tr.Clients()); got != 0 {
		t.Fatalf("clients = %d, want 0", got)
	}
	counts := make([]int, len(seen))
	for i, s := range seen {
		counts[i] = len(s)
	}
	want := []int{1, 2, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("observer calls = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("observer calls = %v, want %v", counts, want)
		}
	}
}
