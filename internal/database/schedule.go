package database

import (
	"context"

	"github.com/pkg/errors"

	"safacycle/internal/model"
)

func (db Database) ScheduleListActive(ctx context.Context) ([]model.CollectionSchedule, error) {
	var ss []model.CollectionSchedule
	err := db.SelectContext(ctx, &ss,
		`SELECT * FROM collection_schedules WHERE is_active = TRUE ORDER BY area, collection_day`)
	return ss, errors.Wrap(err, "error listing active CollectionSchedules")
}
