package database

import (
	"context"

	"github.com/pkg/errors"

	"safacycle/internal/model"
	"safacycle/internal/reward"
)

// ScanCreate persists a scan and folds its points into the owning user in a
// single transaction. The point increment is a per-row atomic UPDATE, so
// concurrent scans by the same user cannot lose updates; the level is
// reclassified from the post-increment total before the transaction commits.
// Returns the stored scan, the user after the mutation, and whether the
// user's level changed.
func (db Database) ScanCreate(ctx context.Context, s model.WasteScan) (model.WasteScan, model.User, bool, error) {
	var u model.User

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return s, u, false, errors.Wrap(err, "error beginning transaction for WasteScan")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO waste_scans
		 (user_id, category_id, item_id, quantity, estimated_weight_grams,
		  points_awarded, bonus_points, description, location,
		  ml_prediction, ml_confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		s.UserID, s.CategoryID, s.ItemID, s.Quantity, s.EstimatedWeightGrams,
		s.PointsAwarded, s.BonusPoints, s.Description, s.Location,
		s.MLPrediction, s.MLConfidence,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, u, false, errors.Wrapf(err, "error inserting WasteScan for UserID: %d", s.UserID)
	}

	var oldLevel reward.Level
	err = tx.QueryRowxContext(ctx,
		`UPDATE users
		 SET total_points = total_points + $1, updated_at = now()
		 WHERE id = $2
		 RETURNING id, username, email, phone_number, total_points, level, is_staff, created_at, updated_at`,
		s.PointsAwarded+s.BonusPoints, s.UserID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PhoneNumber, &u.TotalPoints, &oldLevel, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return s, u, false, errors.Wrapf(err, "error incrementing total_points for UserID: %d", s.UserID)
	}

	u.Level = reward.LevelFor(u.TotalPoints)
	levelUp := u.Level != oldLevel
	if levelUp {
		if _, err = tx.ExecContext(ctx,
			`UPDATE users SET level = $1 WHERE id = $2`, u.Level, u.ID); err != nil {
			return s, u, false, errors.Wrapf(err, "error updating level for UserID: %d", u.ID)
		}
	}

	if err = tx.Commit(); err != nil {
		return s, u, false, errors.Wrapf(err, "error committing WasteScan for UserID: %d", s.UserID)
	}
	return s, u, levelUp, nil
}

func (db Database) ScanListByUser(ctx context.Context, userID int64) ([]model.WasteScan, error) {
	var ss []model.WasteScan
	err := db.SelectContext(ctx, &ss,
		`SELECT * FROM waste_scans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return ss, errors.Wrapf(err, "error listing WasteScans for UserID: %d", userID)
}

func (db Database) ScanRecentByUser(ctx context.Context, userID int64, limit int) ([]model.WasteScan, error) {
	var ss []model.WasteScan
	err := db.SelectContext(ctx, &ss,
		`SELECT * FROM waste_scans WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	return ss, errors.Wrapf(err, "error listing recent WasteScans for UserID: %d", userID)
}
