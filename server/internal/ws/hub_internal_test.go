package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stockwatch/stockwatch/pkg/types"
)

type staticFeed struct{ quotes []types.Quote }

func (f staticFeed) Tick(time.Time) []types.Quote { return f.quotes }

type staticUsers map[string]types.UserView

func (u staticUsers) Snapshot() map[string]types.UserView { return u }

func newTestHub() *Hub {
	return New(staticFeed{}, staticUsers{}, Options{Interval: time.Second})
}

func addClient(h *Hub, buffer int) *client {
	c := &client{id: "c", send: make(chan []byte, buffer)}
	h.clients[c] = struct{}{}
	return c
}

func msgType(t *testing.T, data []byte) string {
	t.Helper()
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return in.Type
}

func TestBroadcast_SlowClientDoesNotBlockOthers(t *testing.T) {
	h := newTestHub()
	slow := addClient(h, 0)
	healthy := []*client{addClient(h, 4), addClient(h, 4)}

	quotes := []types.Quote{{Ticker: types.GOOG, Price: 101, Timestamp: 1}}
	users := map[string]types.UserView{"user_1": {Email: "a@b.com", Subscriptions: []types.Ticker{}}}

	done := make(chan struct{})
	go func() {
		h.broadcast(quotes, users)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a client with no buffer room")
	}

	for i, c := range healthy {
		if len(c.send) != 2 {
			t.Fatalf("client %d: got %d queued, want 2", i, len(c.send))
		}
		if got := msgType(t, <-c.send); got != TypeStockUpdate {
			t.Errorf("client %d first: got %q, want %q", i, got, TypeStockUpdate)
		}
		if got := msgType(t, <-c.send); got != TypeUserUpdate {
			t.Errorf("client %d second: got %q, want %q", i, got, TypeUserUpdate)
		}
	}
	if len(slow.send) != 0 {
		t.Errorf("slow client: got %d queued, want 0", len(slow.send))
	}
	if h.Count() != 3 {
		t.Errorf("Count: got %d, want 3 (slow clients stay connected)", h.Count())
	}
}

func TestRegister_QueuesConnectionMessageFirst(t *testing.T) {
	h := newTestHub()
	c := &client{id: "c", send: make(chan []byte, 4)}

	if !h.register(c, []byte(`{"type":"connection"}`)) {
		t.Fatal("register: got false on an open hub")
	}
	h.broadcast(nil, nil)

	if got := msgType(t, <-c.send); got != TypeConnection {
		t.Errorf("first message: got %q, want %q", got, TypeConnection)
	}
	h.unregister(c)
	h.writers.Done()
}

func TestCloseAll_DrainsAndRejectsNewClients(t *testing.T) {
	h := newTestHub()
	c := addClient(h, 4)
	c.send <- []byte(`{"type":"stockUpdate"}`)

	h.closeAll()

	if _, ok := <-c.send; ok {
		t.Error("send channel: expected closed and drained")
	}
	if h.Count() != 0 {
		t.Errorf("Count: got %d, want 0", h.Count())
	}
	late := &client{id: "late", send: make(chan []byte, 1)}
	if h.register(late, []byte("{}")) {
		t.Error("register after closeAll: got true, want false")
	}

	// unregister after closeAll must not double-close.
	h.unregister(c)
}

func TestHandleMessage_PingQueuesPong(t *testing.T) {
	h := newTestHub()
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	c := addClient(h, 1)

	h.handleMessage(c, []byte(`{"type":"ping"}`))

	var pong PongMessage
	if err := json.Unmarshal(<-c.send, &pong); err != nil {
		t.Fatalf("unmarshal pong: %v", err)
	}
	if pong.Type != TypePong || pong.Timestamp != 1700000000000 {
		t.Errorf("pong: got %+v", pong)
	}

	h.handleMessage(c, []byte(`garbage`))
	h.handleMessage(c, []byte(`{"type":"other"}`))
	if len(c.send) != 0 {
		t.Errorf("queued after ignored messages: got %d, want 0", len(c.send))
	}
}
