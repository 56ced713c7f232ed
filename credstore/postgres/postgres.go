// Package postgres provides a PostgreSQL credential store over database/sql with
// the pgx driver. Username uniqueness is enforced by a UNIQUE constraint, so a
// concurrent duplicate insert fails inside the database.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stefvanhouten/loginauth/credstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements credstore.Store on PostgreSQL.
type Store struct {
	db DBTX
}

var _ credstore.Store = (*Store)(nil)

// New returns a Store bound to db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// Open connects to dsn with the pgx driver, verifies the connection and runs
// migrations. The caller owns the returned *sql.DB.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (credstore.Credential, error) {
	query :=
		`SELECT id, username, password_hash, salt FROM credentials
		 WHERE username = $1
		 `
	return s.scanOne(ctx, query, username)
}

func (s *Store) FindByID(ctx context.Context, id string) (credstore.Credential, error) {
	query :=
		`SELECT id, username, password_hash, salt FROM credentials
		 WHERE id = $1
		 `
	return s.scanOne(ctx, query, id)
}

func (s *Store) Insert(ctx context.Context, username, passwordHash, salt string) (credstore.Credential, error) {
	query :=
		`INSERT INTO credentials (id, username, password_hash, salt)
		 VALUES ($1, $2, $3, $4)
		 `

	cred := credstore.Credential{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Salt:         salt,
	}
	if _, err := s.db.ExecContext(ctx, query, cred.ID, cred.Username, cred.PasswordHash, cred.Salt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return credstore.Credential{}, credstore.ErrDuplicateUsername
		}
		return credstore.Credential{}, fmt.Errorf("%w: db error: %v", credstore.ErrUnavailable, err)
	}
	return cred, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash, salt string) error {
	query :=
		`UPDATE credentials SET password_hash = $2, salt = $3, updated_at = now()
		 WHERE id = $1
		 `

	res, err := s.db.ExecContext(ctx, query, id, passwordHash, salt)
	if err != nil {
		return fmt.Errorf("%w: db error: %v", credstore.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: db error: %v", credstore.ErrUnavailable, err)
	}
	if n == 0 {
		return credstore.ErrNotFound
	}
	return nil
}

func (s *Store) scanOne(ctx context.Context, query string, arg string) (credstore.Credential, error) {
	var cred credstore.Credential
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&cred.ID, &cred.Username, &cred.PasswordHash, &cred.Salt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credstore.Credential{}, credstore.ErrNotFound
		}
		return credstore.Credential{}, fmt.Errorf("%w: db error: %v", credstore.ErrUnavailable, err)
	}
	return cred, nil
}
