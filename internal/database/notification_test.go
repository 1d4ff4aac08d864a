package database

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationMarkRead(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET is_read = TRUE`)).
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, db.NotificationMarkRead(context.Background(), 7, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET is_read = TRUE`)).
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.NotificationMarkRead(context.Background(), 7, 3)
	assert.ErrorIs(t, err, ErrNoRowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkAllRead(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET is_read = TRUE`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := db.NotificationMarkAllRead(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
