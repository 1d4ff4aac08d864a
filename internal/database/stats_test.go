package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safacycle/internal/model"
	"safacycle/internal/reward"
)

func TestMonthStartUTC(t *testing.T) {
	in := time.Date(2024, 3, 17, 22, 15, 4, 0, time.FixedZone("UTC+5", 5*3600))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), monthStartUTC(in))

	// A local time already in the next month must roll forward after the
	// UTC conversion, not stay in the local month.
	edge := time.Date(2024, 4, 1, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), monthStartUTC(edge))
}

func TestPreviousMonthStartUTC(t *testing.T) {
	in := time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), previousMonthStartUTC(in))

	janEdge := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), previousMonthStartUTC(janEdge))
}

func TestUserStatsZeroScans(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC)
	u := model.User{ID: 7, TotalPoints: 0, Level: reward.LevelBeginner}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*), COALESCE(SUM(estimated_weight_grams), 0)`)).
		WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count", "coalesce"}).AddRow(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN waste_scans`)).
		WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).
			AddRow("Plastic", 0).
			AddRow("Organic", 0).
			AddRow("E-Waste", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*), COALESCE(SUM(points_awarded), 0)`)).
		WithArgs(u.ID, monthStartUTC(now)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "coalesce"}).AddRow(0, 0))

	stats, err := db.UserStats(context.Background(), u, now)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalScans)
	assert.Equal(t, 0, stats.TotalPoints)
	assert.Equal(t, reward.LevelBeginner, stats.Level)
	assert.Equal(t, map[string]int{"Plastic": 0, "Organic": 0, "E-Waste": 0}, stats.CategoryBreakdown)
	assert.Equal(t, 0, stats.ThisMonthScans)
	assert.Equal(t, 0, stats.ThisMonthPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func scanColumns() []string {
	return []string{"id", "user_id", "category_id", "item_id", "quantity",
		"estimated_weight_grams", "points_awarded", "bonus_points", "description",
		"location", "ml_prediction", "ml_confidence", "is_verified", "created_at", "updated_at"}
}

func TestDashboard(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC)
	u := model.User{ID: 7, TotalPoints: 120, Level: reward.LevelIntermediate}

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT`)).
		WithArgs(u.ID, 5).
		WillReturnRows(sqlmock.NewRows(scanColumns()).
			AddRow(9, 7, 1, nil, 2, nil, 10, 0, "", "", "", nil, false, now, now).
			AddRow(8, 7, 2, nil, 1, nil, 5, 0, "", "", "", nil, false, now.Add(-time.Hour), now.Add(-time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN waste_scans`)).
		WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).
			AddRow("Plastic", 2).
			AddRow("Organic", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(points_awarded), 0)`)).
		WithArgs(u.ID, monthStartUTC(now)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(15))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(points_awarded), 0)`)).
		WithArgs(u.ID, previousMonthStartUTC(now), monthStartUTC(now)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(105))

	d, err := db.Dashboard(context.Background(), u, now)
	require.NoError(t, err)
	require.Len(t, d.RecentScans, 2)
	assert.Equal(t, int64(9), d.RecentScans[0].ID)
	assert.Equal(t, map[string]int{"Plastic": 2, "Organic": 0}, d.CategoryBreakdown)
	assert.Equal(t, 15, d.MonthlyProgress.CurrentMonth)
	assert.Equal(t, 105, d.MonthlyProgress.PreviousMonth)
	assert.Equal(t, 120, d.TotalPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}
