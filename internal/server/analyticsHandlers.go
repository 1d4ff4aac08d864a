package server

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"

	"safacycle/internal/analytics"
)

func (s Server) analyticsStatus() http.HandlerFunc {
	type response struct {
		Status       string             `json:"status"`
		Message      string             `json:"message"`
		DatabaseInfo *analytics.DBStats `json:"database_info"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Gateway.IsConnected(r.Context()) {
			s.writeJsonResponse(w, response{
				Status:  "disconnected",
				Message: "Document store connection failed",
			}, http.StatusOK)
			return
		}
		s.writeJsonResponse(w, response{
			Status:       "connected",
			Message:      "Document store connection is active",
			DatabaseInfo: s.Gateway.Stats(r.Context()),
		}, http.StatusOK)
	}
}

func (s Server) analyticsScans() http.HandlerFunc {
	type response struct {
		UserID         string   `json:"user_id"`
		AnalyticsCount int      `json:"analytics_count"`
		Analytics      []bson.M `json:"analytics"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("analyticsScans: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		key := analytics.UserKey(uc.user)
		docs := s.Gateway.ListAll(r.Context(), analytics.CollectionScanAnalytics, bson.M{"user_id": key})
		if docs == nil {
			docs = []bson.M{}
		}
		s.writeJsonResponse(w, response{
			UserID:         key,
			AnalyticsCount: len(docs),
			Analytics:      docs,
		}, http.StatusOK)
	}
}

func (s Server) analyticsUserSync() http.HandlerFunc {
	type response struct {
		Success   bool   `json:"success"`
		UserID    string `json:"user_id"`
		MirrorID  string `json:"mirror_id"`
		Connected bool   `json:"document_store_connected"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("analyticsUserSync: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		key := analytics.UserKey(uc.user)
		id := s.Gateway.UpsertByKey(r.Context(), analytics.CollectionUsers, "user_id", key, analytics.UserDocument(uc.user))
		if id == "" {
			s.writeJsonResponse(w, response{
				UserID:    key,
				Connected: s.Gateway.IsConnected(r.Context()),
			}, http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{
			Success:   true,
			UserID:    key,
			MirrorID:  id,
			Connected: true,
		}, http.StatusCreated)
	}
}

func (s Server) analyticsUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("analyticsUser: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		doc := s.Gateway.Get(r.Context(), analytics.CollectionUsers, "user_id", analytics.UserKey(uc.user))
		if doc == nil {
			http.Error(w, "User mirror not found", http.StatusNotFound)
			return
		}
		s.writeJsonResponse(w, doc, http.StatusOK)
	}
}

func (s Server) adminActionSave() http.HandlerFunc {
	type request struct {
		ActionType   string `json:"action_type"`
		Description  string `json:"description"`
		TargetUserID string `json:"target_user_id"`
	}
	type response struct {
		Success  bool   `json:"success"`
		ActionID string `json:"action_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("adminActionSave: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := request{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("adminActionSave: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.ActionType == "" {
			req.ActionType = "api_action"
		}

		id := s.Gateway.Save(r.Context(), analytics.CollectionAdmin, bson.M{
			"admin_id":           analytics.UserKey(uc.user),
			"admin_username":     uc.user.Username,
			"action_type":        req.ActionType,
			"action_description": req.Description,
			"target_user_id":     req.TargetUserID,
			"metadata": bson.M{
				"ip_address": r.RemoteAddr,
				"user_agent": r.UserAgent(),
				"method":     r.Method,
			},
			"data_type": "admin_action",
		})
		if id == "" {
			s.writeJsonResponse(w, response{}, http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true, ActionID: id}, http.StatusCreated)
	}
}

func (s Server) adminActionList() http.HandlerFunc {
	type response struct {
		Success      bool     `json:"success"`
		ActionsCount int      `json:"actions_count"`
		Actions      []bson.M `json:"actions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		filter := bson.M{"data_type": "admin_action"}
		if adminID := r.URL.Query().Get("admin_id"); adminID != "" {
			filter["admin_id"] = adminID
		}

		docs := s.Gateway.ListAll(r.Context(), analytics.CollectionAdmin, filter)
		if docs == nil {
			docs = []bson.M{}
		}
		s.writeJsonResponse(w, response{
			Success:      true,
			ActionsCount: len(docs),
			Actions:      docs,
		}, http.StatusOK)
	}
}

func (s Server) driverSave() http.HandlerFunc {
	type request struct {
		DriverID          string  `json:"driver_id"`
		Username          string  `json:"username"`
		FullName          string  `json:"full_name"`
		EmployeeID        string  `json:"employee_id"`
		VehicleNumber     string  `json:"vehicle_number"`
		VehicleType       string  `json:"vehicle_type"`
		VehicleCapacityKg int     `json:"vehicle_capacity_kg"`
		Status            string  `json:"status"`
		Latitude          float64 `json:"latitude"`
		Longitude         float64 `json:"longitude"`
		Area              string  `json:"area"`
		City              string  `json:"city"`
		RouteAssigned     string  `json:"route_assigned"`
		ShiftTiming       string  `json:"shift_timing"`
		ContactNumber     string  `json:"contact_number"`
	}
	type response struct {
		Success  bool   `json:"success"`
		DriverID string `json:"driver_id"`
		MirrorID string `json:"mirror_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("driverSave: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.DriverID == "" {
			http.Error(w, "driver_id is required", http.StatusBadRequest)
			return
		}
		if req.VehicleType == "" {
			req.VehicleType = "garbage_truck"
		}
		if req.Status == "" {
			req.Status = "active"
		}

		id := s.Gateway.UpsertByKey(r.Context(), analytics.CollectionDrivers, "driver_id", req.DriverID, bson.M{
			"username":            req.Username,
			"full_name":           req.FullName,
			"employee_id":         req.EmployeeID,
			"vehicle_number":      req.VehicleNumber,
			"vehicle_type":        req.VehicleType,
			"vehicle_capacity_kg": req.VehicleCapacityKg,
			"status":              req.Status,
			"current_location": bson.M{
				"latitude":  req.Latitude,
				"longitude": req.Longitude,
				"area":      req.Area,
				"city":      req.City,
			},
			"route_assigned": req.RouteAssigned,
			"shift_timing":   req.ShiftTiming,
			"contact_number": req.ContactNumber,
			"data_type":      "driver_data",
		})
		if id == "" {
			s.writeJsonResponse(w, response{DriverID: req.DriverID}, http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true, DriverID: req.DriverID, MirrorID: id}, http.StatusCreated)
	}
}

func (s Server) driverList() http.HandlerFunc {
	type response struct {
		Success      bool     `json:"success"`
		DriversCount int      `json:"drivers_count"`
		Drivers      []bson.M `json:"drivers"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if driverID := r.URL.Query().Get("driver_id"); driverID != "" {
			doc := s.Gateway.Get(r.Context(), analytics.CollectionDrivers, "driver_id", driverID)
			if doc == nil {
				http.Error(w, "Driver not found", http.StatusNotFound)
				return
			}
			s.writeJsonResponse(w, doc, http.StatusOK)
			return
		}

		docs := s.Gateway.ListAll(r.Context(), analytics.CollectionDrivers, bson.M{"data_type": "driver_data"})
		if docs == nil {
			docs = []bson.M{}
		}
		s.writeJsonResponse(w, response{
			Success:      true,
			DriversCount: len(docs),
			Drivers:      docs,
		}, http.StatusOK)
	}
}
