package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/tempohq/tempo/internal/api/v1"
	"github.com/tempohq/tempo/internal/api/ws"
	"github.com/tempohq/tempo/internal/auth"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterTaskRoutes(api, deps.Tasks)
	v1.RegisterTimerRoutes(api, deps.Timer)
	v1.RegisterRuleRoutes(api, deps.Rules)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/events", hub.ServeEvents)
	r.Get("/tasks/{taskID}", hub.ServeTask)
}
