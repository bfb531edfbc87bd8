package reactor

import "github.com/momentics/hioload-ws/protocol"

// ListenTCP opens a bound, non-blocking listening socket and wraps it
// in a Server-type Connection ready to hand to Worker.AttachConnection.
func ListenTCP(addr string, port uint16, backlog int) (conn *protocol.Connection, boundPort uint16, err error) {
	_ = addr // always binds all interfaces; kept for signature symmetry with the port/backlog parameters
	fd, bound, err := listenTCP(port, backlog)
	if err != nil {
		return nil, 0, err
	}
	return protocol.NewConnection(fd, protocol.TypeServer), bound, nil
}

// ConnectTCP dials host:port non-blocking and wraps the socket in a
// ClientConnection Connection, immediately queuing the client
// handshake request bytes in its write buffer.
func ConnectTCP(host string, port uint16) (*protocol.Connection, error) {
	fd, err := connectTCP(host, port)
	if err != nil {
		return nil, err
	}
	conn := protocol.NewConnection(fd, protocol.TypeClientConnection)
	key, err := protocol.GenerateClientKey()
	if err != nil {
		closeFd(fd)
		return nil, err
	}
	conn.ClientHandshakeKey = key
	conn.WBuf.Append(protocol.BuildClientRequest(key))
	return conn, nil
}
