package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.maxBytesMw, s.loggingMw)

	api.HandleFunc("/user/register", s.userRegister()).Methods(http.MethodPost)
	api.HandleFunc("/user/login", s.userLogin()).Methods(http.MethodPost)

	userAPI := api.PathPrefix("/user").Subrouter()
	userAPI.Use(s.authMw)
	userAPI.HandleFunc("/logout", s.userLogout()).Methods(http.MethodPost)
	userAPI.HandleFunc("/info", s.userInfo()).Methods(http.MethodPost)
	userAPI.PathPrefix("").Handler(http.NotFoundHandler())

	wasteAPI := api.PathPrefix("/waste").Subrouter()
	wasteAPI.Use(s.authMw)
	wasteAPI.HandleFunc("/categories", s.categoryList()).Methods(http.MethodGet)
	wasteAPI.HandleFunc("/items", s.itemList()).Methods(http.MethodGet)
	wasteAPI.HandleFunc("/scans", s.scanCreate()).Methods(http.MethodPost)
	wasteAPI.HandleFunc("/scans", s.scanList()).Methods(http.MethodGet)
	wasteAPI.HandleFunc("/stats", s.userStats()).Methods(http.MethodGet)
	wasteAPI.HandleFunc("/dashboard", s.dashboard()).Methods(http.MethodGet)
	wasteAPI.HandleFunc("/collection-schedule", s.scheduleList()).Methods(http.MethodGet)
	wasteAPI.PathPrefix("").Handler(http.NotFoundHandler())

	notificationAPI := api.PathPrefix("/notifications").Subrouter()
	notificationAPI.Use(s.authMw)
	notificationAPI.HandleFunc("", s.notificationList()).Methods(http.MethodGet)
	notificationAPI.HandleFunc("/unread-count", s.notificationUnreadCount()).Methods(http.MethodGet)
	notificationAPI.HandleFunc("/read-all", s.notificationMarkAllRead()).Methods(http.MethodPost)
	notificationAPI.HandleFunc("/system", s.systemNotificationList()).Methods(http.MethodGet)
	notificationAPI.HandleFunc("/{notificationID}/read", s.notificationMarkRead()).Methods(http.MethodPost)
	notificationAPI.PathPrefix("").Handler(http.NotFoundHandler())

	analyticsAPI := api.PathPrefix("/analytics").Subrouter()
	analyticsAPI.Use(s.authMw)
	analyticsAPI.HandleFunc("/status", s.analyticsStatus()).Methods(http.MethodGet)
	analyticsAPI.HandleFunc("/scans", s.analyticsScans()).Methods(http.MethodGet)
	analyticsAPI.HandleFunc("/user-sync", s.analyticsUserSync()).Methods(http.MethodPost)
	analyticsAPI.HandleFunc("/user", s.analyticsUser()).Methods(http.MethodGet)
	analyticsAPI.PathPrefix("").Handler(http.NotFoundHandler())

	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.Use(s.authMw, s.staffOnly)
	adminAPI.HandleFunc("/actions", s.adminActionSave()).Methods(http.MethodPost)
	adminAPI.HandleFunc("/actions", s.adminActionList()).Methods(http.MethodGet)
	adminAPI.PathPrefix("").Handler(http.NotFoundHandler())

	driverAPI := api.PathPrefix("/drivers").Subrouter()
	driverAPI.Use(s.authMw, s.staffOnly)
	driverAPI.HandleFunc("", s.driverSave()).Methods(http.MethodPost)
	driverAPI.HandleFunc("", s.driverList()).Methods(http.MethodGet)
	driverAPI.PathPrefix("").Handler(http.NotFoundHandler())

	return r
}
