package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"safacycle/internal/analytics"
	"safacycle/internal/model"
	"safacycle/internal/reward"
)

func (s Server) categoryList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := s.DB.CategoryList(r.Context())
		if err != nil {
			s.Logger.Errorf("categoryList: Error listing WasteCategories, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if cs == nil {
			cs = []model.WasteCategory{}
		}
		s.writeJsonResponse(w, cs, http.StatusOK)
	}
}

func (s Server) itemList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var categoryID *int64
		if c := r.URL.Query().Get("category"); c != "" {
			id, err := strconv.ParseInt(c, 10, 64)
			if err != nil {
				http.Error(w, "Invalid category", http.StatusBadRequest)
				return
			}
			categoryID = &id
		}

		is, err := s.DB.ItemList(r.Context(), categoryID)
		if err != nil {
			s.Logger.Errorf("itemList: Error listing WasteItems, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if is == nil {
			is = []model.WasteItem{}
		}
		s.writeJsonResponse(w, is, http.StatusOK)
	}
}

// scanCreate is the scan lifecycle pipeline: validate, compute the reward,
// commit the scan row together with the user point mutation, then hand the
// mirror write to the replicator. The replication outcome is advisory and
// never changes the response status.
func (s Server) scanCreate() http.HandlerFunc {
	type request struct {
		CategoryID           int64    `json:"category_id"`
		ItemID               *int64   `json:"item_id"`
		Quantity             int      `json:"quantity"`
		EstimatedWeightGrams *int     `json:"estimated_weight_grams"`
		Description          string   `json:"description"`
		Location             string   `json:"location"`
		MLPrediction         string   `json:"ml_prediction"`
		MLConfidence         *float64 `json:"ml_confidence"`
	}
	type response struct {
		Scan              model.WasteScan `json:"scan"`
		TotalPoints       int             `json:"total_points"`
		Level             reward.Level    `json:"level"`
		LevelUp           bool            `json:"level_up"`
		ReplicationQueued bool            `json:"replication_queued"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("scanCreate: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := request{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("scanCreate: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		category, err := s.DB.CategoryFindByID(r.Context(), req.CategoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "Unknown category", http.StatusBadRequest)
				return
			}
			s.Logger.Errorf("scanCreate: Error finding WasteCategory with ID: %d, err: %v", req.CategoryID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var itemName string
		if req.ItemID != nil {
			item, err := s.DB.ItemFindByID(r.Context(), *req.ItemID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					http.Error(w, "Unknown item", http.StatusBadRequest)
					return
				}
				s.Logger.Errorf("scanCreate: Error finding WasteItem with ID: %d, err: %v", *req.ItemID, err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if item.CategoryID != category.ID {
				http.Error(w, "Item does not belong to category", http.StatusBadRequest)
				return
			}
			itemName = item.Name
		}

		points, err := reward.Compute(category.PointsPerItem, req.Quantity, req.MLConfidence)
		if err != nil {
			s.Logger.Debugf("scanCreate: Invalid scan from UserID: %d, err: %v", uc.user.ID, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		scan, user, levelUp, err := s.DB.ScanCreate(r.Context(), model.WasteScan{
			UserID:               uc.user.ID,
			CategoryID:           category.ID,
			ItemID:               req.ItemID,
			Quantity:             req.Quantity,
			EstimatedWeightGrams: req.EstimatedWeightGrams,
			PointsAwarded:        points.Awarded,
			BonusPoints:          points.Bonus,
			Description:          req.Description,
			Location:             req.Location,
			MLPrediction:         req.MLPrediction,
			MLConfidence:         req.MLConfidence,
		})
		if err != nil {
			s.Logger.Errorf("scanCreate: Error creating WasteScan for UserID: %d, err: %v", uc.user.ID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		queued := s.Replicator.Enqueue(analytics.ScanEvent{
			Scan:     scan,
			Category: category,
			ItemName: itemName,
			User:     user,
		})

		if levelUp {
			go s.notifyLevelUp(user)
		}
		s.invalidateStatsCache(r.Context(), user.ID)

		s.writeJsonResponse(w, response{
			Scan:              scan,
			TotalPoints:       user.TotalPoints,
			Level:             user.Level,
			LevelUp:           levelUp,
			ReplicationQueued: queued,
		}, http.StatusCreated)
	}
}

func (s Server) scanList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("scanList: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		ss, err := s.DB.ScanListByUser(r.Context(), uc.user.ID)
		if err != nil {
			s.Logger.Errorf("scanList: Error listing WasteScans for UserID: %d, err: %v", uc.user.ID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if ss == nil {
			ss = []model.WasteScan{}
		}
		s.writeJsonResponse(w, ss, http.StatusOK)
	}
}

func (s Server) scheduleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ss, err := s.DB.ScheduleListActive(r.Context())
		if err != nil {
			s.Logger.Errorf("scheduleList: Error listing CollectionSchedules, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if ss == nil {
			ss = []model.CollectionSchedule{}
		}
		s.writeJsonResponse(w, ss, http.StatusOK)
	}
}
