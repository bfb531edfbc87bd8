// stale_sweep_test.go verifies that a connection idle past its
// configured timeout is closed by the stale sweep with status 1016,
// without further handler invocations.
package tests

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/momentics/hioload-ws/endpoint"
	"github.com/momentics/hioload-ws/protocol"
)

func TestStaleSweepClosesIdleConnection(t *testing.T) {
	handlerCalls := 0
	handler := protocol.HandlerFunc(func(req protocol.WsRequest, resp protocol.WsResponse) error {
		handlerCalls++
		return nil
	})

	ep := endpoint.New()
	cfg := endpoint.WsConfig{Threads: 1, MaxEvents: 16, StaleTimeout: 200 * time.Millisecond}
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

	if err := conn.WriteMessage(websocket.TextMessage, []byte("one frame, then silence")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	// The sweep writes the two-frame close sequence (an empty close frame,
	// then one carrying the status). A websocket client stops at the first
	// close frame, so the bytes are read straight off the socket instead.
	raw := conn.UnderlyingConn()
	raw.SetReadDeadline(time.Now().Add(9 * time.Second))
	want := protocol.EncodeClose(protocol.StatusStaleTimeout)
	got := make([]byte, len(want))
	if _, err := io.ReadFull(raw, got); err != nil {
		t.Fatalf("reading close sequence: %v, want close from stale sweep", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("close sequence = %x, want %x (status %d)", got, want, protocol.StatusStaleTimeout)
	}
	if handlerCalls != 1 {
		t.Fatalf("handlerCalls = %d, want 1 (only the initial frame)", handlerCalls)
	}
}
