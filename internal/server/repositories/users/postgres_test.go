package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughConverter lets []string arguments reach the mock untouched, the
// way the pgx stdlib driver accepts them.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) { return v, nil }

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(passthroughConverter{}),
	)
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var userColumns = []string{"id", "token_identifier", "org_ids", "name", "image", "created_at"}

func TestGetByTokenIdentifier_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT id, token_identifier, org_ids, name, image, created_at FROM users\s+WHERE token_identifier = \$1`).
		WithArgs("tok|alice").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "tok|alice", "{acme,beta}", "Alice", nil, created))

	got, err := repo.GetByTokenIdentifier(context.Background(), "tok|alice")
	require.NoError(t, err)

	want := &models.User{
		ID:              "u1",
		TokenIdentifier: "tok|alice",
		OrgIDs:          []string{"acme", "beta"},
		Name:            "Alice",
		CreatedAt:       created,
	}
	assert.Empty(t, cmp.Diff(want, got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTokenIdentifier_EmptyOrgs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users\s+WHERE token_identifier`).
		WithArgs("tok|solo").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u2", "tok|solo", "{}", nil, nil, time.Now()))

	got, err := repo.GetByTokenIdentifier(context.Background(), "tok|solo")
	require.NoError(t, err)
	assert.Empty(t, got.OrgIDs)
}

func TestGetByTokenIdentifier_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users\s+WHERE token_identifier`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByTokenIdentifier(context.Background(), "nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs("u1").
		WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
	assert.False(t, errors.Is(err, common.ErrorNotFound))
}

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now().UTC()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\b.*ON\s+CONFLICT\s*\(token_identifier\)\s*DO\s+UPDATE\s+SET\b.*RETURNING id, created_at`).
		WithArgs("tok|alice", []string{"acme"}, sql.NullString{String: "Alice", Valid: true}, sql.NullString{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u1", created))

	u, err := repo.Upsert(context.Background(), &models.User{
		TokenIdentifier: "tok|alice",
		OrgIDs:          []string{"acme"},
		Name:            "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, created, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_NilOrgsBecomeEmpty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("tok|bob", []string{}, sql.NullString{}, sql.NullString{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u2", time.Now()))

	_, err := repo.Upsert(context.Background(), &models.User{TokenIdentifier: "tok|bob"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
