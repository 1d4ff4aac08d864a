package database

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"safacycle/internal/model"
)

func (db Database) NotificationInsert(ctx context.Context, n model.Notification) (model.Notification, error) {
	err := db.QueryRowxContext(ctx,
		`INSERT INTO notifications (user_id, title, message, notification_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		n.UserID, n.Title, n.Message, n.NotificationType,
	).Scan(&n.ID, &n.CreatedAt)
	return n, errors.Wrapf(err, "error inserting Notification for UserID: %d", n.UserID)
}

func (db Database) NotificationListByUser(ctx context.Context, userID int64) ([]model.Notification, error) {
	var ns []model.Notification
	err := db.SelectContext(ctx, &ns,
		`SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return ns, errors.Wrapf(err, "error listing Notifications for UserID: %d", userID)
}

// NotificationMarkRead marks one of the user's notifications as read.
// Returns ErrNoRowsAffected when the notification does not exist or belongs
// to another user.
func (db Database) NotificationMarkRead(ctx context.Context, userID int64, notificationID int64) error {
	r, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = now()
		 WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return errors.Wrapf(err, "error marking Notification with ID: %d read for UserID: %d", notificationID, userID)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNoRowsAffected, "no Notification with ID: %d for UserID: %d", notificationID, userID)
	}
	return nil
}

func (db Database) NotificationMarkAllRead(ctx context.Context, userID int64) (int64, error) {
	r, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = now()
		 WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, errors.Wrapf(err, "error marking all Notifications read for UserID: %d", userID)
	}
	n, err := r.RowsAffected()
	return n, errors.Wrapf(err, "error getting affected rows for UserID: %d", userID)
}

func (db Database) NotificationUnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
	return count, errors.Wrapf(err, "error counting unread Notifications for UserID: %d", userID)
}

// SystemNotificationListActive returns broadcasts whose active window
// contains now: is_active, started, and either no end date or not yet ended.
func (db Database) SystemNotificationListActive(ctx context.Context, now time.Time) ([]model.SystemNotification, error) {
	var ns []model.SystemNotification
	err := db.SelectContext(ctx, &ns,
		`SELECT * FROM system_notifications
		 WHERE is_active = TRUE AND start_date <= $1 AND (end_date IS NULL OR end_date >= $1)
		 ORDER BY created_at DESC`, now)
	return ns, errors.Wrap(err, "error listing active SystemNotifications")
}
