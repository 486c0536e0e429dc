package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "username", "password_hash", "full_name", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ   = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*password_hash,\s*full_name,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`
	byNameQ   = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*full_name,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	byIDQ     = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*full_name,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	listQ     = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*full_name,\s*created_at\s+FROM\s+users\s+ORDER\s+BY\s+seq$`
	deleteAll = `^DELETE\s+FROM\s+users$`
	deleteOne = `^DELETE\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
)

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestPostgres_Create_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	name := "Alice"
	u := &models.User{ID: "id-1", UserName: "alice", PasswordHash: "h", FullName: &name, CreatedAt: created}

	mock.ExpectExec(insertQ).
		WithArgs("id-1", "alice", "h", "Alice", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Create_NilFullName(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(insertQ).
		WithArgs("id-1", "alice", "h", nil, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Create(context.Background(), &models.User{ID: "id-1", UserName: "alice", PasswordHash: "h", CreatedAt: created})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Create_UniqueViolation(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := repo.Create(context.Background(), &models.User{ID: "id-2", UserName: "alice", CreatedAt: created})
	assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
}

func TestPostgres_Create_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: "id-1", UserName: "alice", CreatedAt: created})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestPostgres_GetUserByLogin(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byNameQ).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("id-1", "alice", "h", "Alice", created))

	got, err := repo.GetUserByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	require.NotNil(t, got.FullName)
	assert.Equal(t, "Alice", *got.FullName)
	assert.Equal(t, created, got.CreatedAt)
}

func TestPostgres_GetUserByLogin_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byNameQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_GetUserByID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byIDQ).
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("id-1", "alice", "h", nil, created))

	got, err := repo.GetUserByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
	assert.Nil(t, got.FullName)
}

func TestPostgres_GetUserByID_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byIDQ).WithArgs("id-1").WillReturnError(errors.New("db err"))

	_, err := repo.GetUserByID(context.Background(), "id-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, err.Error(), "db error")
}

func TestPostgres_List(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(listQ).WillReturnRows(sqlmock.NewRows(userCols).
		AddRow("id-1", "alice", "h1", nil, created).
		AddRow("id-2", "bob", "h2", "Bob", created))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].UserName)
	assert.Equal(t, "bob", got[1].UserName)
}

func TestPostgres_List_Empty(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(listQ).WillReturnRows(sqlmock.NewRows(userCols))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgres_ReplaceAll_Commits(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(deleteAll).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(insertQ).WithArgs("id-1", "alice", "h", nil, created).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAll(context.Background(), []*models.User{
		{ID: "id-1", UserName: "alice", PasswordHash: "h", CreatedAt: created},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceAll_RollsBack(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(deleteAll).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQ).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), []*models.User{
		{ID: "id-1", UserName: "alice", CreatedAt: created},
	})
	assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteByUsername(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(deleteOne).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteByUsername(context.Background(), "alice"))

	mock.ExpectExec(deleteOne).WithArgs("bob").WillReturnError(errors.New("db err"))
	assert.Error(t, repo.DeleteByUsername(context.Background(), "bob"))
}

func TestRunMigrations_UsesGoose(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var called bool
	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		assert.Same(t, db, got)
		assert.Equal(t, ".", dir)
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	assert.True(t, called)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, RunMigrations(context.Background(), db), "migrate: boom")
}
