package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safacycle/internal/model"
	"safacycle/internal/reward"
)

func newMockDB(t *testing.T) (Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mockDB.Close()
	})
	return Database{DB: sqlx.NewDb(mockDB, "sqlmock")}, mock
}

func userColumns() []string {
	return []string{"id", "username", "email", "phone_number", "total_points", "level", "is_staff", "created_at", "updated_at"}
}

func TestScanCreate(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name        string
		delta       int
		totalAfter  int
		storedLevel reward.Level

		expectLevel   reward.Level
		expectLevelUp bool
	}{
		{
			name:        "no level change",
			delta:       16,
			totalAfter:  50,
			storedLevel: reward.LevelBeginner,
			expectLevel: reward.LevelBeginner,
		},
		{
			name:          "crosses level threshold",
			delta:         10,
			totalAfter:    105,
			storedLevel:   reward.LevelBeginner,
			expectLevel:   reward.LevelIntermediate,
			expectLevelUp: true,
		},
		{
			name:          "crosses expert threshold",
			delta:         200,
			totalAfter:    1100,
			storedLevel:   reward.LevelAdvanced,
			expectLevel:   reward.LevelExpert,
			expectLevelUp: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)

			scan := model.WasteScan{
				UserID:        7,
				CategoryID:    3,
				Quantity:      2,
				PointsAwarded: tc.delta,
			}

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO waste_scans`)).
				WithArgs(scan.UserID, scan.CategoryID, nil, scan.Quantity, nil,
					tc.delta, 0, "", "", "", nil).
				WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
					AddRow(42, now, now))
			mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
				WithArgs(tc.delta, scan.UserID).
				WillReturnRows(sqlmock.NewRows(userColumns()).
					AddRow(7, "amina", "amina@example.com", "", tc.totalAfter, string(tc.storedLevel), false, now, now))
			if tc.expectLevelUp {
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET level`)).
					WithArgs(string(tc.expectLevel), int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			}
			mock.ExpectCommit()

			s, u, levelUp, err := db.ScanCreate(context.Background(), scan)
			require.NoError(t, err)
			assert.Equal(t, int64(42), s.ID)
			assert.Equal(t, tc.delta, s.PointsAwarded)
			assert.Equal(t, tc.totalAfter, u.TotalPoints)
			assert.Equal(t, tc.expectLevel, u.Level)
			assert.Equal(t, tc.expectLevelUp, levelUp)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestScanCreateInsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO waste_scans`)).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, _, _, err := db.ScanCreate(context.Background(), model.WasteScan{UserID: 7, CategoryID: 3, Quantity: 1})
	assert.ErrorContains(t, err, "constraint violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanCreateIncrementFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO waste_scans`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(42, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
		WillReturnError(errors.New("user row gone"))
	mock.ExpectRollback()

	_, _, _, err := db.ScanCreate(context.Background(), model.WasteScan{UserID: 7, CategoryID: 3, Quantity: 1})
	assert.ErrorContains(t, err, "user row gone")
	assert.NoError(t, mock.ExpectationsWereMet())
}
