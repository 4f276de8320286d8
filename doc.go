// Package goSession is the client-side session core of the showcase
// platform: it holds the one process-wide session, derives it from the
// persisted bearer credential, and keeps both in step.
//
// The public surface is [Client], assembled by [Builder]. A Client
// wires a [Store] over a storage backend, a [Bootstrapper] that hydrates it
// once at startup, and an [net/http.Client] whose transport attaches the
// credential to every request and force-logs-out when the server declares
// the session invalid.
//
// # Architecture boundaries
//
// goSession owns session state. It exposes [Store], [Session], [Config] and
// value types. Token decoding lives in jwt/, persistence in storage/, the
// request pipeline in transport/ and route guards in middleware/. transport/
// reaches the store only through the Terminator it resolves at the moment of
// failure, so nothing below this package imports it.
//
// # What this package must NOT do
//
//   - Verify token signatures. The issuing server owns that check.
//   - Log or audit credentials.
//   - Turn business denials into session changes.
//
// # Concurrency contract
//
// Store mutations are serialised; [Store.Snapshot] never blocks. Listeners
// registered with [Store.Subscribe] observe every transition in order.
package goSession
