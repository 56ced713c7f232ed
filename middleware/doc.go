// Package middleware adapts the loginauth engine to net/http.
//
// # Cookies
//
//   - [SetSessionCookie] writes a token with the session cookie contract:
//     HttpOnly, SameSite=Lax, Secure, Max-Age equal to the session lifetime.
//   - [ClearSessionCookie] expires it.
//
// # Guards
//
//   - [Guard] answers 401 when the session cookie is missing or rejected.
//   - [GuardRedirect] redirects instead, for browser-facing pages.
//
// Both call Engine.CurrentUser and place the resulting identity in the request
// context, readable with [IdentityFromContext].
//
// # What this package must NOT do
//
//   - Decode or sign tokens directly (delegates to the engine).
//   - Access Redis or the credential store.
//   - Tell the client why a session was rejected.
package middleware
