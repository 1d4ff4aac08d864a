package model

import "safacycle/internal/reward"

// UserStats is the fixed set of read-side rollups for one user. The category
// breakdown contains every defined category, zero-filled when the user has no
// scans in it. Month boundaries are calendar months in UTC.
type UserStats struct {
	TotalScans        int            `json:"total_scans"`
	TotalPoints       int            `json:"total_points"`
	Level             reward.Level   `json:"level"`
	TotalWeightGrams  int            `json:"total_weight_grams"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	ThisMonthScans    int            `json:"this_month_scans"`
	ThisMonthPoints   int            `json:"this_month_points"`
}

type MonthlyProgress struct {
	CurrentMonth  int `json:"current_month"`
	PreviousMonth int `json:"previous_month"`
}

type Dashboard struct {
	RecentScans       []WasteScan     `json:"recent_scans"`
	CategoryBreakdown map[string]int  `json:"category_breakdown"`
	TotalPoints       int             `json:"total_points"`
	Level             reward.Level    `json:"level"`
	MonthlyProgress   MonthlyProgress `json:"monthly_progress"`
}
