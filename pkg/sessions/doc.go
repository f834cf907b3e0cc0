// Package sessions persists the server-side half of every credential: a
// session row keyed by the SHA-256 hash of the bearer token. Tokens are
// never stored raw. A request authenticates only while a matching,
// unexpired session row exists, so revocation is a row delete.
package sessions
