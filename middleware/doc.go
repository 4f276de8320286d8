// Package middleware implements the route guards that decide what a request
// may see from the current session.
//
// # Guards
//
//   - [Guards.Protected]: defer while initializing, redirect to login with
//     a return location when unauthenticated, render when authenticated.
//   - [Guards.PublicOnly]: the inverse, for login and landing pages.
//   - [Guards.RoleEntry]: redirect an authenticated user to the destination
//     of their role, failing closed to login.
//
// Each guard is a pure [Decision] over a session snapshot. [Guards.RequireSession],
// [Guards.RequireAnonymous] and [Guards.RoleEntryHandler] adapt them to net/http;
// the Gin* methods adapt them to gin.
//
// # Architecture boundaries
//
// Guards only read the session through [SessionSource]. They never mutate
// it, never parse credentials and never talk to storage.
package middleware
