package analytics

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"safacycle/internal/model"
)

// ScanEvent carries everything needed to build the denormalized analytics
// documents for one scan, captured at commit time so the replicator never
// reads the primary store.
type ScanEvent struct {
	Scan     model.WasteScan
	Category model.WasteCategory
	ItemName string
	User     model.User
}

// ScanDocument denormalizes a scan with its category and user identifiers
// into the append-only scan_analytics shape.
func ScanDocument(e ScanEvent) bson.M {
	var item any
	if e.ItemName != "" {
		item = e.ItemName
	}
	return bson.M{
		"user_id":                strconv.FormatInt(e.User.ID, 10),
		"username":               e.User.Username,
		"scan_id":                strconv.FormatInt(e.Scan.ID, 10),
		"category":               e.Category.Name,
		"category_type":          string(e.Category.CategoryType),
		"item":                   item,
		"quantity":               e.Scan.Quantity,
		"estimated_weight_grams": e.Scan.EstimatedWeightGrams,
		"points_awarded":         e.Scan.PointsAwarded,
		"bonus_points":           e.Scan.BonusPoints,
		"ml_prediction":          e.Scan.MLPrediction,
		"ml_confidence":          e.Scan.MLConfidence,
		"is_verified":            e.Scan.IsVerified,
		"location":               e.Scan.Location,
		"description":            e.Scan.Description,
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
		"created_at":             e.Scan.CreatedAt.UTC().Format(time.RFC3339),
		"data_type":              "waste_scan",
	}
}

// PredictionDocument is the append-only ml_predictions record for a scan
// that carried an ML classification.
func PredictionDocument(e ScanEvent) bson.M {
	return bson.M{
		"scan_id":    strconv.FormatInt(e.Scan.ID, 10),
		"user_id":    strconv.FormatInt(e.User.ID, 10),
		"prediction": e.Scan.MLPrediction,
		"confidence": e.Scan.MLConfidence,
		"category":   e.Category.Name,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"data_type":  "ml_prediction",
	}
}

// UserDocument is the denormalized user mirror, upserted by user_id.
func UserDocument(u model.User) bson.M {
	return bson.M{
		"username":     u.Username,
		"email":        u.Email,
		"phone_number": u.PhoneNumber,
		"total_points": u.TotalPoints,
		"level":        string(u.Level),
		"is_active":    true,
		"date_joined":  u.CreatedAt.UTC().Format(time.RFC3339),
		"data_type":    "user_data",
	}
}

// UserKey is the natural key a user mirror document is upserted on.
func UserKey(u model.User) string {
	return strconv.FormatInt(u.ID, 10)
}
