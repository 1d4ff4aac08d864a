package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"safacycle/internal/database"
	"safacycle/internal/model"
)

func (s Server) notificationList() http.HandlerFunc {
	type response struct {
		Notifications []model.Notification `json:"notifications"`
		UnreadCount   int                  `json:"unread_count"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("notificationList: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		ns, err := s.DB.NotificationListByUser(r.Context(), uc.user.ID)
		if err != nil {
			s.Logger.Errorf("notificationList: Error listing Notifications, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		unread, err := s.DB.NotificationUnreadCount(r.Context(), uc.user.ID)
		if err != nil {
			s.Logger.Errorf("notificationList: Error counting unread Notifications, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if ns == nil {
			ns = []model.Notification{}
		}
		s.writeJsonResponse(w, response{Notifications: ns, UnreadCount: unread}, http.StatusOK)
	}
}

func (s Server) notificationUnreadCount() http.HandlerFunc {
	type response struct {
		UnreadCount int `json:"unread_count"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("notificationUnreadCount: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		unread, err := s.DB.NotificationUnreadCount(r.Context(), uc.user.ID)
		if err != nil {
			s.Logger.Errorf("notificationUnreadCount: Error counting unread Notifications, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{UnreadCount: unread}, http.StatusOK)
	}
}

func (s Server) notificationMarkRead() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("notificationMarkRead: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		notificationID, err := strconv.ParseInt(mux.Vars(r)["notificationID"], 10, 64)
		if err != nil || notificationID < 1 {
			http.Error(w, "Invalid notification ID", http.StatusBadRequest)
			return
		}

		if err = s.DB.NotificationMarkRead(r.Context(), uc.user.ID, notificationID); err != nil {
			if errors.Is(err, database.ErrNoRowsAffected) {
				http.Error(w, "Notification not found", http.StatusNotFound)
				return
			}
			s.Logger.Errorf("notificationMarkRead: Error marking Notification read, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

func (s Server) notificationMarkAllRead() http.HandlerFunc {
	type response struct {
		Success     bool  `json:"success"`
		MarkedCount int64 `json:"marked_count"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("notificationMarkAllRead: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		n, err := s.DB.NotificationMarkAllRead(r.Context(), uc.user.ID)
		if err != nil {
			s.Logger.Errorf("notificationMarkAllRead: Error marking Notifications read, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true, MarkedCount: n}, http.StatusOK)
	}
}

func (s Server) systemNotificationList() http.HandlerFunc {
	type response struct {
		SystemNotifications []model.SystemNotification `json:"system_notifications"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ns, err := s.DB.SystemNotificationListActive(r.Context(), time.Now())
		if err != nil {
			s.Logger.Errorf("systemNotificationList: Error listing SystemNotifications, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if ns == nil {
			ns = []model.SystemNotification{}
		}
		s.writeJsonResponse(w, response{SystemNotifications: ns}, http.StatusOK)
	}
}
