// Package storage persists the raw session credential under a single key.
//
// # Backends
//
//   - [Memory] keeps the credential in process memory (default, tests).
//   - [File] keeps it in one file with owner-only permissions, surviving restarts.
//   - [Redis] keeps it under one Redis key whose expiry follows the credential's exp.
//
// # Architecture boundaries
//
// This package stores and replays the credential string. It does NOT decode
// it, judge expiry, or track session state; those belong to goSession.Store.
//
// # What this package must NOT do
//
//   - Import goSession or jwt (no upward imports).
//   - Log or otherwise expose the stored credential.
package storage
