package web

import (
	"net/http"

	"coachdesk/internal/adapters/http/middleware"
)

// route registers h under pattern and labels its timing entries with the pattern.
func route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.SetRoute(r.Context(), r.Pattern)
		h(w, r)
	}))
}

// authed registers h behind RequireAuth.
func authed(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	route(mux, pattern, middleware.RequireAuth(h).ServeHTTP)
}

func (a *app) registerRoutes(mux *http.ServeMux) {
	route(mux, "GET /health", handleHealth)
	route(mux, "GET /metrics", a.services.Metrics.Handler().ServeHTTP)

	// Authoring
	authed(mux, "POST /api/exercises", a.handleCreateExercise)
	authed(mux, "POST /api/coach/templates", a.handleCreateCoachTemplate)
	authed(mux, "GET /api/coach/templates/{id}", a.handleGetCoachTemplate)
	authed(mux, "POST /api/coach/templates/{id}/sessions", a.handleAddCoachSession)
	authed(mux, "POST /api/coach/sessions/{id}/exercises", a.handleAddCoachExercise)

	// Client templates
	authed(mux, "POST /api/client/templates", a.handleInstantiateTemplate)
	authed(mux, "GET /api/client/templates/{id}", a.handleGetClientTemplate)
	authed(mux, "PATCH /api/client/templates/{id}", a.handleUpdateClientTemplate)
	authed(mux, "POST /api/client/templates/{id}/sessions", a.handleCreateClientSession)
	authed(mux, "GET /api/client/templates/{id}/sessions/{sid}", a.handleGetClientSession)
	authed(mux, "PATCH /api/client/templates/{id}/sessions/{sid}", a.handleUpdateClientSession)

	// Clients
	authed(mux, "GET /api/clients", a.handleListClients)
	authed(mux, "GET /api/clients/{id}/active-template", a.handleGetActiveTemplate)
	authed(mux, "GET /api/clients/{id}/training-log", a.handleTrainingLog)
	authed(mux, "PUT /api/clients/{id}/approve", a.handleApproveClient)
	authed(mux, "PUT /api/clients/{id}/terminate", a.handleTerminateClient)
	authed(mux, "GET /api/users/{id}", a.handleGetUser)

	// Check-ins
	authed(mux, "GET /api/check-ins/{id}/sessions", a.handleValidSessions)
	authed(mux, "PATCH /api/check-ins/{id}", a.handleUpdateCheckIn)
	authed(mux, "PUT /api/check-ins/{id}/images/{slot}", a.handleUploadCheckInImage)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
