package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stefvanhouten/loginauth/credstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectByUsername = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*salt\s+FROM\s+credentials\s+WHERE\s+username\s*=\s*\$1\s*$`
	selectByID       = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*salt\s+FROM\s+credentials\s+WHERE\s+id\s*=\s*\$1\s*$`
	insertCredential = `(?s)^INSERT\s+INTO\s+credentials\s*\(id,\s*username,\s*password_hash,\s*salt\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*$`
	updateCredential = `(?s)^UPDATE\s+credentials\s+SET\s+password_hash\s*=\s*\$2,\s*salt\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db), mock
}

func TestFindByUsername_Found(t *testing.T) {
	s, mock := newStoreWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "salt"}).
		AddRow("u-1", "alice", "hash", "AAAAAAAAAAA=")
	mock.ExpectQuery(selectByUsername).WithArgs("alice").WillReturnRows(rows)

	got, err := s.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, credstore.Credential{ID: "u-1", Username: "alice", PasswordHash: "hash", Salt: "AAAAAAAAAAA="}, got)
}

func TestFindByUsername_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(selectByUsername).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := s.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestFindByID_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(selectByID).WithArgs("u-1").WillReturnError(errors.New("db down"))

	_, err := s.FindByID(context.Background(), "u-1")
	require.ErrorIs(t, err, credstore.ErrUnavailable)
	assert.Contains(t, err.Error(), "db down")
}

func TestInsert_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(insertCredential).
		WithArgs(sqlmock.AnyArg(), "alice", "hash", "salt").
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.Insert(context.Background(), "alice", "hash", "salt")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestInsert_UniqueViolation(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(insertCredential).
		WithArgs(sqlmock.AnyArg(), "alice", "hash", "salt").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "credentials_username_key"})

	_, err := s.Insert(context.Background(), "alice", "hash", "salt")
	assert.ErrorIs(t, err, credstore.ErrDuplicateUsername)
}

func TestInsert_OtherPgError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(insertCredential).
		WithArgs(sqlmock.AnyArg(), "alice", "hash", "salt").
		WillReturnError(&pgconn.PgError{Code: "53300"})

	_, err := s.Insert(context.Background(), "alice", "hash", "salt")
	assert.ErrorIs(t, err, credstore.ErrUnavailable)
	assert.NotErrorIs(t, err, credstore.ErrDuplicateUsername)
}

func TestUpdatePasswordHash(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(updateCredential).
		WithArgs("u-1", "h2", "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdatePasswordHash(context.Background(), "u-1", "h2", "s2"))

	mock.ExpectExec(updateCredential).
		WithArgs("missing", "h2", "s2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.UpdatePasswordHash(context.Background(), "missing", "h2", "s2"), credstore.ErrNotFound)
}

func TestMigrateUsesEmbeddedDir(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, "migrations", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	err := Migrate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration error")
}

func TestEmbeddedMigrationPresent(t *testing.T) {
	data, err := migrations.ReadFile("migrations/00001_create_credentials.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "UNIQUE")
}
