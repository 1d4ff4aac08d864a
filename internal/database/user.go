package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"safacycle/internal/model"
	"safacycle/internal/reward"
)

func (db Database) UserInsert(ctx context.Context, u model.User) (model.User, error) {
	err := db.QueryRowxContext(ctx,
		`INSERT INTO users (username, email, password, phone_number, level)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, total_points, level, is_staff, created_at, updated_at`,
		u.Username, u.Email, u.Password, u.PhoneNumber, reward.LevelFor(0),
	).Scan(&u.ID, &u.TotalPoints, &u.Level, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	return u, errors.Wrapf(err, "error inserting User with username: %s", u.Username)
}

func (db Database) UserFindByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	return u, errors.Wrapf(err, "error finding User with ID: %d", id)
}

func (db Database) UserFindByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE username = $1`, username)
	return u, errors.Wrapf(err, "error finding User with username: %s", username)
}

// DeviceUpsert saves the device the user is logging in from, replacing the
// stored login token hash and FCM token when the device is already known.
func (db Database) DeviceUpsert(ctx context.Context, d model.Device) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO devices (user_id, device_id, fcm_token, token_hash, token_expiration, last_seen)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (user_id, device_id) DO UPDATE
		 SET fcm_token = EXCLUDED.fcm_token,
		     token_hash = EXCLUDED.token_hash,
		     token_expiration = EXCLUDED.token_expiration,
		     last_seen = now()`,
		d.UserID, d.DeviceID, d.FCMToken, d.TokenHash, d.TokenExpiration)
	return errors.Wrapf(err, "error upserting Device with DeviceID: %s for UserID: %d", d.DeviceID, d.UserID)
}

func (db Database) DeviceFind(ctx context.Context, userID int64, deviceID string) (model.Device, error) {
	var d model.Device
	err := db.GetContext(ctx, &d,
		`SELECT * FROM devices WHERE user_id = $1 AND device_id = $2`, userID, deviceID)
	return d, errors.Wrapf(err, "error finding Device with DeviceID: %s for UserID: %d", deviceID, userID)
}

// DeviceTokenClear invalidates the login token stored for the device,
// logging the user out on it.
func (db Database) DeviceTokenClear(ctx context.Context, userID int64, deviceID string) error {
	r, err := db.ExecContext(ctx,
		`UPDATE devices SET token_hash = NULL, token_expiration = NULL
		 WHERE user_id = $1 AND device_id = $2`, userID, deviceID)
	if err != nil {
		return errors.Wrapf(err, "error clearing login token for UserID: %d, DeviceID: %s", userID, deviceID)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNoRowsAffected, "no Device with DeviceID: %s for UserID: %d", deviceID, userID)
	}
	return nil
}

func (db Database) DeviceLastSeenUpdate(ctx context.Context, userID int64, deviceID string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE devices SET last_seen = now() WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID)
	return errors.Wrapf(err, "error updating last_seen for UserID: %d, DeviceID: %s", userID, deviceID)
}

func (db Database) DeviceFCMTokenUpdate(ctx context.Context, userID int64, deviceID string, fcmToken string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE devices SET fcm_token = $3 WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID, fcmToken)
	return errors.Wrapf(err, "error updating FCM token for UserID: %d, DeviceID: %s", userID, deviceID)
}

// UserFCMTokens returns the non-empty FCM tokens of devices the user was
// seen on within the last 90 days.
func (db Database) UserFCMTokens(ctx context.Context, userID int64) ([]string, error) {
	var tokens []string
	err := db.SelectContext(ctx, &tokens,
		`SELECT fcm_token FROM devices
		 WHERE user_id = $1 AND fcm_token <> '' AND last_seen > $2`,
		userID, time.Now().AddDate(0, 0, -90))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(err, "error listing FCM tokens for UserID: %d", userID)
	}
	return tokens, nil
}
