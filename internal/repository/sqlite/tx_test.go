package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/learnpath/internal/apperror"
)

// setupMockDB puts a sqlmock connection behind DB. Migrations are skipped:
// these tests only check which statements run and how the transaction ends.
func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return newWithConn(conn), mock
}

func expectDependentDeletes(mock sqlmock.Sqlmock, userID string) {
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM lesson_completions WHERE student_id = ?`)).
		WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM project_submissions WHERE user_id = ?`)).
		WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_providers WHERE user_id = ?`)).
		WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestDelete_CommitsWhenEveryStatementSucceeds(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	expectDependentDeletes(mock, "u1")
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = ?`)).
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.Delete(context.Background(), "u1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RollsBackWhenCascadeFails(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM lesson_completions WHERE student_id = ?`)).
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM project_submissions WHERE user_id = ?`)).
		WithArgs("u1").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := db.Delete(context.Background(), "u1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_submissions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RollsBackWhenUserMissing(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	expectDependentDeletes(mock, "ghost")
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = ?`)).
		WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := db.Delete(context.Background(), "ghost")

	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_CommitFailureIsReported(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := db.WithinTx(context.Background(), func(_ *sql.Tx) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "committing transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailTaken_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND id <> ?)`)).
		WithArgs("a@b.com", "").WillReturnError(errors.New("boom"))

	_, err := db.EmailTaken(context.Background(), "a@b.com", "")

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
