// Package credstore defines the credential persistence contract consumed by the
// loginauth engine, together with the sentinel errors every implementation maps
// its backend failures onto.
//
// # Implementations
//
//   - memory: process-local map guarded by a mutex (tests, development).
//   - bbolt: embedded single-file database; check-and-insert runs in one write transaction.
//   - postgres: database/sql over pgx with a UNIQUE username constraint and goose migrations.
//
// # Architecture boundaries
//
// Stores persist and return password hashes and salts verbatim. They never hash,
// verify, or generate salts; that belongs to the password package.
//
// # What this package must NOT do
//
//   - Import loginauth (the root package re-exports these types).
//   - Implement uniqueness as a separate lookup followed by an insert.
package credstore
