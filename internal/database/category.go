package database

import (
	"context"

	"github.com/pkg/errors"

	"safacycle/internal/model"
)

func (db Database) CategoryList(ctx context.Context) ([]model.WasteCategory, error) {
	var cs []model.WasteCategory
	err := db.SelectContext(ctx, &cs, `SELECT * FROM waste_categories ORDER BY name`)
	return cs, errors.Wrap(err, "error listing WasteCategories")
}

func (db Database) CategoryFindByID(ctx context.Context, id int64) (model.WasteCategory, error) {
	var c model.WasteCategory
	err := db.GetContext(ctx, &c, `SELECT * FROM waste_categories WHERE id = $1`, id)
	return c, errors.Wrapf(err, "error finding WasteCategory with ID: %d", id)
}

// ItemList returns all waste items, or only the items of one category when
// categoryID is non-nil.
func (db Database) ItemList(ctx context.Context, categoryID *int64) ([]model.WasteItem, error) {
	var is []model.WasteItem
	if categoryID != nil {
		err := db.SelectContext(ctx, &is,
			`SELECT * FROM waste_items WHERE category_id = $1 ORDER BY name`, *categoryID)
		return is, errors.Wrapf(err, "error listing WasteItems for CategoryID: %d", *categoryID)
	}
	err := db.SelectContext(ctx, &is, `SELECT * FROM waste_items ORDER BY name`)
	return is, errors.Wrap(err, "error listing WasteItems")
}

func (db Database) ItemFindByID(ctx context.Context, id int64) (model.WasteItem, error) {
	var i model.WasteItem
	err := db.GetContext(ctx, &i, `SELECT * FROM waste_items WHERE id = $1`, id)
	return i, errors.Wrapf(err, "error finding WasteItem with ID: %d", id)
}
