// Package jwt decodes bearer credentials into session claims and judges their
// expiry. Decoding is pure and never verifies signatures; [Issuer] is the
// signing counterpart used by servers and test fixtures.
package jwt
