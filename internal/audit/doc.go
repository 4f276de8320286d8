// Package audit relays session lifecycle events to a caller-supplied sink.
//
// # Components
//
//   - [Sink] receives events (channel, JSON lines, no-op).
//   - [Dispatcher] is a buffered async relay that either drops or blocks
//     when the buffer is full.
//   - [Event] is one lifecycle record: bootstrap, login, logout, forced
//     logout, expiry.
//
// # Architecture boundaries
//
// The package decides nothing about which events exist. The session store
// emits; this package only buffers and delivers. It must not import goSession.
package audit
