// client_handshake_test.go verifies that the outbound client path,
// which generates its own Sec-WebSocket-Key, completes the handshake
// against the core's own server on a 101 response and then exchanges
// frames normally. The server here returns a correct accept-key; that
// the client does not check it is covered by
// TestParseClientHandshakeAcceptsAnyKeyOn101.
package tests

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-ws/endpoint"
	"github.com/momentics/hioload-ws/protocol"
)

func TestClientHandshakeAcceptsAnyKey(t *testing.T) {
	var serverSawHello atomic.Bool
	var clientSawReply atomic.Bool

	serverHandler := protocol.HandlerFunc(func(req protocol.WsRequest, resp protocol.WsResponse) error {
		if string(req.Payload) == "hello from client" {
			serverSawHello.Store(true)
			return resp.SendText([]byte("hello from server"))
		}
		return nil
	})
	clientHandler := protocol.HandlerFunc(func(req protocol.WsRequest, resp protocol.WsResponse) error {
		if string(req.Payload) == "hello from server" {
			clientSawReply.Store(true)
		}
		return nil
	})

	server := endpoint.New()
	if err := server.Start(endpoint.WsConfig{Threads: 2, MaxEvents: 32}, serverHandler); err != nil {
		t.Fatalf("server Start: %v", err)
	}
	defer server.Stop()

	port, err := server.AddServer(endpoint.WsServerConfig{Port: 0, Backlog: 16})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	client := endpoint.New()
	if err := client.Start(endpoint.WsConfig{Threads: 1, MaxEvents: 32}, clientHandler); err != nil {
		t.Fatalf("client Start: %v", err)
	}
	defer client.Stop()

	resp, err := client.AddClient(endpoint.WsClientConfig{Host: "127.0.0.1", Port: port})
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := resp.SendText([]byte("hello from client")); err == nil {
			break
		}
		time.Sleep(time.Millisecond)
	}

	deadline = time.Now().Add(2 * time.Second)
	for !clientSawReply.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if !serverSawHello.Load() {
		t.Fatal("server never observed the client's hello")
	}
	if !clientSawReply.Load() {
		t.Fatal("client never observed the server's reply, despite not validating the accept key")
	}
}
