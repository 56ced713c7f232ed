// Package session provides the signed session token codec and the registries that
// track which issued tokens are still active.
//
// # Token format
//
// A token is two base64url (unpadded) segments joined by a dot:
//
//	<payload>.<tag>
//
// payload is the compact binary encoding of [Claims] (see [Encode]); tag is
// HMAC-SHA256 over the payload segment exactly as it appears in the token. [Codec.Decode]
// verifies the tag in constant time before any payload byte is interpreted.
//
// # Architecture boundaries
//
// This package owns the [Codec], the [Claims] model and two registry backends:
// [MemoryStore] (process-local) and [RedisStore]. It does NOT look up credentials,
// verify passwords or decide what a failed decode means for the caller; those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import loginauth or any credential store (no upward imports).
//   - Carry password hashes, salts or any other secret material inside [Claims].
//   - Persist raw tokens; registries key entries by a SHA-256 fingerprint.
package session
