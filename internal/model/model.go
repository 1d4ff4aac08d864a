package model

import (
	"time"

	"safacycle/internal/reward"
)

type User struct {
	ID          int64        `db:"id" json:"id"`
	Username    string       `db:"username" json:"username"`
	Email       string       `db:"email" json:"email"`
	Password    []byte       `db:"password" json:"-"`
	PhoneNumber string       `db:"phone_number" json:"phone_number"`
	TotalPoints int          `db:"total_points" json:"total_points"`
	Level       reward.Level `db:"level" json:"level"`
	IsStaff     bool         `db:"is_staff" json:"-"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"-"`
}

// Device is a client installation a user has logged in from. The login token
// hash is compared against the presented JWT on every authenticated request.
type Device struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	DeviceID        string    `db:"device_id"`
	FCMToken        string    `db:"fcm_token"`
	TokenHash       []byte    `db:"token_hash"`
	TokenExpiration time.Time `db:"token_expiration"`
	LastSeen        time.Time `db:"last_seen"`
	CreatedAt       time.Time `db:"created_at"`
}

type CategoryType string

const (
	CategoryRecyclable CategoryType = "recyclable"
	CategoryOrganic    CategoryType = "organic"
	CategoryHazardous  CategoryType = "hazardous"
	CategoryElectronic CategoryType = "electronic"
)

func (ct CategoryType) Valid() bool {
	switch ct {
	case CategoryRecyclable, CategoryOrganic, CategoryHazardous, CategoryElectronic:
		return true
	}
	return false
}

type WasteCategory struct {
	ID            int64        `db:"id" json:"id"`
	Name          string       `db:"name" json:"name"`
	CategoryType  CategoryType `db:"category_type" json:"category_type"`
	Description   string       `db:"description" json:"description"`
	PointsPerItem int          `db:"points_per_item" json:"points_per_item"`
	ColorCode     string       `db:"color_code" json:"color_code"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"-"`
}

type WasteItem struct {
	ID                 int64     `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	CategoryID         int64     `db:"category_id" json:"category_id"`
	TypicalWeightGrams int       `db:"typical_weight_grams" json:"typical_weight_grams"`
	Description        string    `db:"description" json:"description"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"-"`
}

// WasteScan is one disposal event submitted by a user. PointsAwarded and
// BonusPoints are set once at creation and never change afterwards.
type WasteScan struct {
	ID                   int64     `db:"id" json:"id"`
	UserID               int64     `db:"user_id" json:"user_id"`
	CategoryID           int64     `db:"category_id" json:"category_id"`
	ItemID               *int64    `db:"item_id" json:"item_id"`
	Quantity             int       `db:"quantity" json:"quantity"`
	EstimatedWeightGrams *int      `db:"estimated_weight_grams" json:"estimated_weight_grams"`
	PointsAwarded        int       `db:"points_awarded" json:"points_awarded"`
	BonusPoints          int       `db:"bonus_points" json:"bonus_points"`
	Description          string    `db:"description" json:"description"`
	Location             string    `db:"location" json:"location"`
	MLPrediction         string    `db:"ml_prediction" json:"ml_prediction"`
	MLConfidence         *float64  `db:"ml_confidence" json:"ml_confidence"`
	IsVerified           bool      `db:"is_verified" json:"is_verified"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"-"`
}

type Notification struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"-"`
	Title            string     `db:"title" json:"title"`
	Message          string     `db:"message" json:"message"`
	NotificationType string     `db:"notification_type" json:"notification_type"`
	IsRead           bool       `db:"is_read" json:"is_read"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ReadAt           *time.Time `db:"read_at" json:"read_at"`
}

// SystemNotification is a broadcast shown to every user while it is active
// and the current time falls within [StartDate, EndDate], with a nil EndDate
// meaning no expiry.
type SystemNotification struct {
	ID               int64      `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	Message          string     `db:"message" json:"message"`
	NotificationType string     `db:"notification_type" json:"notification_type"`
	IsActive         bool       `db:"is_active" json:"-"`
	StartDate        time.Time  `db:"start_date" json:"start_date"`
	EndDate          *time.Time `db:"end_date" json:"end_date"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

type CollectionSchedule struct {
	ID             int64     `db:"id" json:"id"`
	Area           string    `db:"area" json:"area"`
	CategoryID     int64     `db:"category_id" json:"category_id"`
	CollectionDay  string    `db:"collection_day" json:"collection_day"`
	CollectionTime string    `db:"collection_time" json:"collection_time"`
	Frequency      string    `db:"frequency" json:"frequency"`
	DriverName     string    `db:"driver_name" json:"driver_name"`
	DriverPhone    string    `db:"driver_phone" json:"driver_phone"`
	IsActive       bool      `db:"is_active" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
