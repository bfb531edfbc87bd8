package protocol_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/momentics/hioload-ws/protocol"
)

func TestParseServerHandshakeOK(t *testing.T) {
	req := "GET /chat HTTP/1.1\r\nHost: example.com\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	result := protocol.ParseServerHandshake([]byte(req))
	if result.Status != protocol.HandshakeOK {
		t.Fatalf("status = %v, want HandshakeOK", result.Status)
	}
	if !bytes.HasPrefix(result.Response, []byte("HTTP/1.1 101 Switching Protocols\r\n")) {
		t.Errorf("response = %q", result.Response)
	}
	if !bytes.Contains(result.Response, []byte("s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")) {
		t.Errorf("accept token missing or wrong: %q", result.Response)
	}
}

func TestParseServerHandshakeIncomplete(t *testing.T) {
	result := protocol.ParseServerHandshake([]byte("GET / HTTP/1.1\r\nSec-WebSocket-Key: abc"))
	if result.Status != protocol.HandshakeIncomplete {
		t.Errorf("status = %v, want HandshakeIncomplete", result.Status)
	}
}

func TestParseServerHandshakeRejectsIllegalURI(t *testing.T) {
	req := "GET /ch@t HTTP/1.1\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	result := protocol.ParseServerHandshake([]byte(req))
	if result.Status != protocol.HandshakeMalformed {
		t.Fatalf("status = %v, want HandshakeMalformed", result.Status)
	}
	if !bytes.HasPrefix(result.Response, []byte("HTTP/1.1 400 Bad Request\r\n")) {
		t.Errorf("response = %q", result.Response)
	}
}

func TestParseServerHandshakeMissingKey(t *testing.T) {
	req := "GET / HTTP/1.1\r\nHost: x\r\n\r\n"
	result := protocol.ParseServerHandshake([]byte(req))
	if result.Status != protocol.HandshakeMalformed {
		t.Errorf("status = %v, want HandshakeMalformed", result.Status)
	}
}

func TestAcceptTokenRFC6455Vector(t *testing.T) {
	got := protocol.AcceptToken("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("AcceptToken = %q, want %q", got, want)
	}
}

func TestGenerateClientKeyLength(t *testing.T) {
	key, err := protocol.GenerateClientKey()
	if err != nil {
		t.Fatal(err)
	}
	if len(key) != 24 {
		t.Errorf("len(key) = %d, want 24", len(key))
	}
}

func TestBuildClientRequest(t *testing.T) {
	req := string(protocol.BuildClientRequest("abc123"))
	if !strings.HasPrefix(req, "GET / HTTP/1.1\r\n") {
		t.Errorf("request = %q", req)
	}
	if !strings.Contains(req, "Sec-WebSocket-Key: abc123\r\n") {
		t.Errorf("request missing key: %q", req)
	}
}

func TestParseClientHandshakeAcceptsAnyKeyOn101(t *testing.T) {
	resp := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nSec-WebSocket-Accept: garbage\r\n\r\n"
	result := protocol.ParseClientHandshake([]byte(resp))
	if result.Status != protocol.HandshakeOK {
		t.Errorf("status = %v, want HandshakeOK (accept key is not validated)", result.Status)
	}
}

func TestParseClientHandshakeRejectsWrongStatus(t *testing.T) {
	resp := "HTTP/1.1 404 Not Found\r\n\r\n"
	result := protocol.ParseClientHandshake([]byte(resp))
	if result.Status != protocol.HandshakeMalformed {
		t.Errorf("status = %v, want HandshakeMalformed", result.Status)
	}
}
