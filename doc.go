// Package loginauth provides credential registration, password login and
// revocable session tokens for web applications.
//
// An [Engine] is assembled once with [Builder]:
//
//	engine, err := loginauth.New().
//		WithConfig(cfg).
//		WithCredentialStore(store).
//		Build()
//
// Engine methods are safe to call from multiple goroutines after Build.
//
// # Architecture boundaries
//
// loginauth is the public surface. It exposes [Engine], [Builder], [Config], the
// sentinel errors and value types. Hashing lives in password, token encoding and
// the session registries in session, persistence behind [CredentialStore]. Login
// throttling and audit dispatch live under internal/.
//
// Login failures are deliberately generic: unknown usernames and wrong passwords
// both return [ErrInvalidCredentials] after equivalent hashing work. Every session
// failure in [Engine.CurrentUser] collapses to [ErrUnauthenticated].
//
// # What this package must NOT do
//
//   - Place password hashes or salts in a session token or an Identity.
//   - Log plaintext passwords, hashes, salts or tokens.
//   - Import any sub-package that re-imports loginauth (no import cycles).
package loginauth
