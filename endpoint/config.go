// Package endpoint is the public façade over the reactor group: it
// owns the worker pool, the per-worker round-robin/halt state, and the
// add_server/add_client/stop operations.
//
// Adapted from a server/client facade pair (config struct plus
// functional options, a GetControl()-style status accessor): the
// internals are rewritten from scratch because that design is built
// around NUMA buffer pools and a batch-oriented IOCP/epoll transport
// abstraction that this core leaves out of scope; only the facade
// shape survives.
package endpoint

import "time"

// WsConfig configures Start: the fixed worker thread count and the
// shared tuning knobs every worker in the group uses.
type WsConfig struct {
	Threads      int           // reactor worker count; also runtime.Pool's min=max
	MaxEvents    int           // events buffer size per Wait call
	StaleTimeout time.Duration // idle timeout before a connection is swept; 0 disables sweeping
	DebugPending bool          // route the core's own sends (handshake responses, close frames) through the buffered wbuf path; WsResponse sends still try a direct send first
}

// DefaultWsConfig mirrors the common DefaultConfig pattern.
func DefaultWsConfig() WsConfig {
	return WsConfig{
		Threads:      4,
		MaxEvents:    128,
		StaleTimeout: 60 * time.Second,
	}
}

// WsServerConfig configures AddServer.
type WsServerConfig struct {
	Addr    string // not used: AddServer always binds all IPv4 interfaces
	Port    uint16 // 0 picks an ephemeral port
	Backlog int
}

// WsClientConfig configures AddClient.
type WsClientConfig struct {
	Host string
	Port uint16
}
