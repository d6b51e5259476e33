package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/talentloop/talentsync/internal/authz"
	"github.com/talentloop/talentsync/internal/handlers"
	"github.com/talentloop/talentsync/internal/models"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Endpoints     *handlers.EndpointHandler
	Schemas       *handlers.SchemaHandler
	Formatters    *handlers.FormatterHandler
	Runs          *handlers.RunHandler
	Schedules     *handlers.ScheduleHandler
	Notifications *handlers.NotificationHandler
}

// NewRouter wires the route table. Everything under /api except signup
// and login requires a valid token; mutations need at least editor, user
// and endpoint administration needs admin.
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/api/signup", h.Auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", h.Auth.Login).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware)

	viewer := func(fn http.HandlerFunc) http.Handler {
		return authz.RequireRoleHandler(models.RoleViewer, fn)
	}
	editor := func(fn http.HandlerFunc) http.Handler {
		return authz.RequireRoleHandler(models.RoleEditor, fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return authz.RequireRoleHandler(models.RoleAdmin, fn)
	}

	// Users
	api.Handle("/users", admin(h.Users.List)).Methods(http.MethodGet)
	api.Handle("/users/{id}/roles", admin(h.Users.UpdateRoles)).Methods(http.MethodPut)
	api.Handle("/users/{id}", admin(h.Users.Delete)).Methods(http.MethodDelete)

	// Connector endpoints
	api.Handle("/endpoints", viewer(h.Endpoints.List)).Methods(http.MethodGet)
	api.Handle("/endpoints", admin(h.Endpoints.Create)).Methods(http.MethodPost)
	api.Handle("/endpoints/{id}", viewer(h.Endpoints.Get)).Methods(http.MethodGet)
	api.Handle("/endpoints/{id}", admin(h.Endpoints.Update)).Methods(http.MethodPut)
	api.Handle("/endpoints/{id}", admin(h.Endpoints.Delete)).Methods(http.MethodDelete)
	api.Handle("/endpoints/{id}/test", editor(h.Endpoints.Test)).Methods(http.MethodPost)

	// Schema introspection
	api.Handle("/schema/unified/{resource}", viewer(h.Schemas.GetUnified)).Methods(http.MethodGet)
	api.Handle("/schema/{kind}/{resource}", viewer(h.Schemas.GetConnector)).Methods(http.MethodGet)

	// Formatters
	api.Handle("/formatters", viewer(h.Formatters.List)).Methods(http.MethodGet)
	api.Handle("/formatters", editor(h.Formatters.Create)).Methods(http.MethodPost)
	api.Handle("/formatters/{id}", editor(h.Formatters.Delete)).Methods(http.MethodDelete)

	// Runs
	api.Handle("/runs", viewer(h.Runs.List)).Methods(http.MethodGet)
	api.Handle("/runs", editor(h.Runs.Trigger)).Methods(http.MethodPost)
	api.Handle("/runs/stats", viewer(h.Runs.Stats)).Methods(http.MethodGet)
	api.Handle("/runs/{id}", viewer(h.Runs.Get)).Methods(http.MethodGet)
	api.Handle("/events", editor(h.Runs.IngestEvents)).Methods(http.MethodPost)

	// Schedules
	api.Handle("/schedules", viewer(h.Schedules.List)).Methods(http.MethodGet)
	api.Handle("/schedules", editor(h.Schedules.Create)).Methods(http.MethodPost)
	api.Handle("/schedules/{id}", viewer(h.Schedules.Get)).Methods(http.MethodGet)
	api.Handle("/schedules/{id}", editor(h.Schedules.Update)).Methods(http.MethodPut)
	api.Handle("/schedules/{id}", editor(h.Schedules.Delete)).Methods(http.MethodDelete)

	// Notifications
	api.Handle("/notifications", viewer(h.Notifications.List)).Methods(http.MethodGet)
	api.Handle("/notifications/{notificationID}/read", viewer(h.Notifications.MarkRead)).Methods(http.MethodPost)

	return router
}
