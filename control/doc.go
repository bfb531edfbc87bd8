// Package control is the ambient layer wired into every endpoint.Endpoint:
// a dynamic config store, a named-gauge metrics registry, a debug probe
// registry, and platform-specific probe registration (build-tag
// partitioned between Linux and Windows).
//
// None of it is WebSocket-specific; endpoint.Endpoint is the only
// caller, feeding it worker counts, accept/reject/stale-close totals,
// and a live snapshot of its own config on StaleTimeout hot-reload.
package control
