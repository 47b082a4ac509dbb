package hub

import (
	"testing"
	"time"
)

// newIdleClient builds a client without a connection or pumps, so tests can
// observe the hub's bookkeeping directly on the send channel.
func newIdleClient(h *Hub, buffer int) *Client {
	c := &Client{
		id:   "test-client",
		hub:  h,
		send: make(chan Message, buffer),
	}
	h.register <- c
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	waitFor(t, h.IsRunning)

	c := newIdleClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]int{"seq": 1}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	select {
	case msg := <-c.send:
		if msg.Type != JSONMessage {
			t.Errorf("message type = %v, want JSON", msg.Type)
		}
		if string(msg.Data) != `{"seq":1}` {
			t.Errorf("payload = %s", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never delivered")
	}

	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	// The hub closes the channel on unregister.
	if _, open := <-c.send; open {
		t.Error("send channel still open after unregister")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	waitFor(t, h.IsRunning)

	slow := newIdleClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	// First message fills the buffer; the second one finds it full and the
	// client is dropped rather than blocking the broadcast loop.
	h.Broadcast(NewJSONMessage([]byte(`1`)))
	h.Broadcast(NewJSONMessage([]byte(`2`)))

	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if msg, open := <-slow.send; !open || string(msg.Data) != `1` {
		t.Errorf("buffered message lost: open=%v data=%s", open, msg.Data)
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	h := New("test", nil)
	go h.Run()

	waitFor(t, h.IsRunning)

	c := newIdleClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Stop()
	waitFor(t, func() bool { return !h.IsRunning() })

	if _, open := <-c.send; open {
		t.Error("send channel still open after Stop")
	}
	if h.ClientCount() != 0 {
		t.Errorf("clients remain after Stop: %d", h.ClientCount())
	}
}
