// Package password implements salted SHA-256 password hashing and verification.
//
// # Record format
//
// A stored credential carries two text columns:
//
//	hash: 64 lowercase hex characters, SHA-256(plaintext || hex(salt))
//	salt: standard base64 text of SaltBytes (8) random bytes
//
// The salt text is hex-encoded before it is mixed in, so the hash input stays ASCII no
// matter how the salt column is stored or transported.
//
// # Architecture boundaries
//
// This package owns salt generation, hashing and verification only. Credential
// persistence and login policy belong to the Engine and its CredentialStore.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other loginauth package.
//   - Log plaintext passwords, hashes or salts.
package password
