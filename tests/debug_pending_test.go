// debug_pending_test.go runs the same exchange as the loopback echo
// test but with debug_pending set, which routes the core's own sends
// (here the 101 handshake response) through the buffered wbuf path,
// exercising the write control message and the write-interest
// re-arm/drain cycle. Handler replies through WsResponse still try a
// direct send first.
package tests

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/momentics/hioload-ws/endpoint"
	"github.com/momentics/hioload-ws/protocol"
)

func TestDebugPendingPathMatchesDirectPath(t *testing.T) {
	var gotIt atomic.Bool

	handler := protocol.HandlerFunc(func(req protocol.WsRequest, resp protocol.WsResponse) error {
		switch string(req.Payload) {
		case "this is a test":
			return resp.SendText([]byte("got it!"))
		case "got it!":
			gotIt.Store(true)
		}
		return nil
	})

	ep := endpoint.New()
	cfg := endpoint.WsConfig{Threads: 4, MaxEvents: 64, StaleTimeout: 5 * time.Second, DebugPending: true}
	if err := ep.Start(cfg, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ep.Stop()

	port, err := ep.AddServer(endpoint.WsServerConfig{Port: 0, Backlog: 16})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(port), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("this is a test")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg) != "got it!" {
		t.Fatalf("reply = %q, want %q", msg, "got it!")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("got it!")); err != nil {
		t.Fatalf("WriteMessage (ack): %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !gotIt.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !gotIt.Load() {
		t.Fatal("handler never observed the ack payload under debug_pending")
	}
}
