package protocol

import "log"

// WsRequest is an ephemeral, borrowed view of a single decoded frame.
// Payload aliases the connection's read buffer and is only valid for
// the duration of the Handler call.
type WsRequest struct {
	Payload []byte
	Fin     bool
	Op      byte
}

// WsResponse wraps a Connection for replying to, or explicitly closing,
// the session that produced a WsRequest.
type WsResponse struct {
	Conn *Connection
}

// SendText writes a single unmasked text frame.
func (r WsResponse) SendText(payload []byte) error {
	return r.Conn.Send(EncodeFrame(OpcodeText, payload, false), false)
}

// SendBinary writes a single unmasked binary frame.
func (r WsResponse) SendBinary(payload []byte) error {
	return r.Conn.Send(EncodeFrame(OpcodeBinary, payload, false), false)
}

// Close emits the two-frame close sequence and half-closes the socket.
func (r WsResponse) Close(status uint16) error {
	err := r.Conn.Send(EncodeClose(status), false)
	r.Conn.Hooks.Shutdown()
	return err
}

// Handler processes one complete frame. Handler-returned errors are
// logged by the caller and discarded; they never affect the connection.
type Handler interface {
	Handle(req WsRequest, resp WsResponse) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(req WsRequest, resp WsResponse) error

func (f HandlerFunc) Handle(req WsRequest, resp WsResponse) error { return f(req, resp) }

// DispatchResult tells the caller (the reactor's readable-event path)
// what happened after feeding newly-read bytes through the frame
// decoder.
type DispatchResult int

const (
	// DispatchOK: zero or more frames were consumed; the connection
	// remains open.
	DispatchOK DispatchResult = iota
	// DispatchProtocolError: a reserved-bit violation or oversized
	// frame was seen; the caller must emit EncodeClose(1002) and
	// shut down.
	DispatchProtocolError
)

// DecodeAndDispatch repeatedly parses frames out of c.RBuf and invokes
// handler for each one. Ping/Pong control frames are intercepted first:
// a Ping triggers an automatic unmasked Pong reply and is not forwarded
// to handler; a Pong is swallowed.
func DecodeAndDispatch(c *Connection, handler Handler) DispatchResult {
	for {
		raw := c.RBuf.Bytes()
		frame, consumed, outcome := DecodeFrame(raw)
		switch outcome {
		case DecodeIncomplete:
			return DispatchOK
		case DecodeProtocolError:
			return DispatchProtocolError
		}

		switch frame.Opcode {
		case OpcodePing:
			_ = c.Send(EncodeFrame(OpcodePong, frame.Payload, false), false)
		case OpcodePong:
			// acknowledged; no action.
		default:
			req := WsRequest{Payload: frame.Payload, Fin: frame.IsFinal, Op: frame.Opcode}
			if err := handler.Handle(req, WsResponse{Conn: c}); err != nil {
				log.Printf("protocol: handler error: %v", err)
			}
		}

		c.RBuf.Consume(consumed)
		if consumed == 0 {
			return DispatchOK
		}
	}
}
