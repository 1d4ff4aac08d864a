package database

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"safacycle/internal/model"
)

// All monthly aggregates use calendar months in UTC.

func monthStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func previousMonthStartUTC(t time.Time) time.Time {
	return monthStartUTC(monthStartUTC(t).AddDate(0, 0, -1))
}

// UserStats computes the per-user rollups over the primary store. The
// category breakdown covers every defined category, zero-filled when the
// user never scanned it.
func (db Database) UserStats(ctx context.Context, u model.User, now time.Time) (model.UserStats, error) {
	stats := model.UserStats{
		TotalPoints: u.TotalPoints,
		Level:       u.Level,
	}

	err := db.QueryRowxContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(estimated_weight_grams), 0)
		 FROM waste_scans WHERE user_id = $1`, u.ID,
	).Scan(&stats.TotalScans, &stats.TotalWeightGrams)
	if err != nil {
		return stats, errors.Wrapf(err, "error counting WasteScans for UserID: %d", u.ID)
	}

	stats.CategoryBreakdown, err = db.categoryBreakdown(ctx, u.ID)
	if err != nil {
		return stats, err
	}

	err = db.QueryRowxContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(points_awarded), 0)
		 FROM waste_scans WHERE user_id = $1 AND created_at >= $2`,
		u.ID, monthStartUTC(now),
	).Scan(&stats.ThisMonthScans, &stats.ThisMonthPoints)
	if err != nil {
		return stats, errors.Wrapf(err, "error aggregating current month WasteScans for UserID: %d", u.ID)
	}
	return stats, nil
}

// Dashboard extends the stats rollups with the five most recent scans and a
// current-vs-previous month point comparison, each month independently
// bounded.
func (db Database) Dashboard(ctx context.Context, u model.User, now time.Time) (model.Dashboard, error) {
	d := model.Dashboard{
		TotalPoints: u.TotalPoints,
		Level:       u.Level,
		RecentScans: []model.WasteScan{},
	}

	recent, err := db.ScanRecentByUser(ctx, u.ID, 5)
	if err != nil {
		return d, err
	}
	if recent != nil {
		d.RecentScans = recent
	}

	d.CategoryBreakdown, err = db.categoryBreakdown(ctx, u.ID)
	if err != nil {
		return d, err
	}

	currentStart := monthStartUTC(now)
	previousStart := previousMonthStartUTC(now)

	err = db.QueryRowxContext(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0)
		 FROM waste_scans WHERE user_id = $1 AND created_at >= $2`,
		u.ID, currentStart,
	).Scan(&d.MonthlyProgress.CurrentMonth)
	if err != nil {
		return d, errors.Wrapf(err, "error aggregating current month points for UserID: %d", u.ID)
	}

	err = db.QueryRowxContext(ctx,
		`SELECT COALESCE(SUM(points_awarded), 0)
		 FROM waste_scans WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		u.ID, previousStart, currentStart,
	).Scan(&d.MonthlyProgress.PreviousMonth)
	if err != nil {
		return d, errors.Wrapf(err, "error aggregating previous month points for UserID: %d", u.ID)
	}
	return d, nil
}

func (db Database) categoryBreakdown(ctx context.Context, userID int64) (map[string]int, error) {
	rows, err := db.QueryxContext(ctx,
		`SELECT c.name, COUNT(s.id)
		 FROM waste_categories c
		 LEFT JOIN waste_scans s ON s.category_id = c.id AND s.user_id = $1
		 GROUP BY c.name`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "error aggregating category breakdown for UserID: %d", userID)
	}
	defer func() {
		_ = rows.Close()
	}()

	breakdown := map[string]int{}
	for rows.Next() {
		var name string
		var count int
		if err = rows.Scan(&name, &count); err != nil {
			return nil, errors.Wrapf(err, "error scanning category breakdown row for UserID: %d", userID)
		}
		breakdown[name] = count
	}
	return breakdown, errors.Wrapf(rows.Err(), "error iterating category breakdown rows for UserID: %d", userID)
}
