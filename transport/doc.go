// Package transport provides the outbound and inbound hooks of the session
// core as composable [net/http.RoundTripper] layers.
//
// # Layers
//
//   - [Authenticator] reads the persisted credential on every request and
//     attaches it as a bearer Authorization header.
//   - [Recovery] classifies 401/403 responses and, when the server declares
//     the session invalid, forces logout through a lazily resolved
//     [Terminator], then surfaces a [Notice] and navigates to login.
//   - [Cache] keeps successful GET responses per credential and drops them
//     all on [Cache.InvalidateAll].
//
// The intended order, outermost first, is Authenticator → Recovery → Cache →
// base transport, so Recovery sees the credential each request carried.
//
// # Architecture boundaries
//
// This package never imports goSession. The session store is reached only
// through [Terminator], resolved at the moment of failure, which keeps the
// low-level pipeline free of an import-time dependency on the store.
package transport
