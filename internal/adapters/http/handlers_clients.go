package web

import (
	"net/http"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/application/listutil"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
	"coachdesk/internal/domain/apperr"
)

// handleListClients handles GET /api/clients.
func (a *app) handleListClients(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryListClients(r.Context(), projections.ListClientsQuery{
		Caller: middleware.CallerFromContext(r.Context()),
	}, projections.ListClientsDeps{Users: a.stores.Users})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listClientsResponse{
		Approved:   toUserResponses(res.Approved),
		Unapproved: toUserResponses(res.Unapproved),
		Past:       toUserResponses(res.Past),
	})
}

// handleGetUser handles GET /api/users/{id}.
func (a *app) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := projections.QueryGetUser(r.Context(), projections.GetUserQuery{
		Caller: middleware.CallerFromContext(r.Context()),
		UserID: r.PathValue("id"),
	}, projections.ListClientsDeps{Users: a.stores.Users})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleApproveClient handles PUT /api/clients/{id}/approve.
func (a *app) handleApproveClient(w http.ResponseWriter, r *http.Request) {
	u, err := orchestrators.ExecuteApproveClient(r.Context(), orchestrators.ApproveClientInput{
		Caller:   middleware.CallerFromContext(r.Context()),
		ClientID: r.PathValue("id"),
	}, orchestrators.ApproveClientDeps{
		UserStore: a.stores.Users,
		Effects:   a.effects(),
		Now:       a.now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleTerminateClient handles PUT /api/clients/{id}/terminate.
func (a *app) handleTerminateClient(w http.ResponseWriter, r *http.Request) {
	u, err := orchestrators.ExecuteTerminateClient(r.Context(), orchestrators.TerminateClientInput{
		Caller:   middleware.CallerFromContext(r.Context()),
		ClientID: r.PathValue("id"),
	}, orchestrators.TerminateClientDeps{
		ClientTemplates: a.stores.ClientTemplates,
		Effects:         a.effects(),
		Now:             a.now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleGetActiveTemplate handles GET /api/clients/{id}/active-template.
func (a *app) handleGetActiveTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := projections.QueryGetActiveTemplate(r.Context(), projections.GetActiveTemplateQuery{
		Caller:   middleware.CallerFromContext(r.Context()),
		ClientID: r.PathValue("id"),
	}, projections.GetActiveTemplateDeps{ClientTemplates: a.stores.ClientTemplates, Users: a.stores.Users})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientTemplateResponse(t))
}

// handleTrainingLog handles GET /api/clients/{id}/training-log?page=&per_page=.
func (a *app) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	params, err := listutil.ParsePageParams(r.URL.Query())
	if err != nil {
		writeError(w, r, apperr.Invalid(err))
		return
	}
	res, err := projections.QueryTrainingLog(r.Context(), projections.TrainingLogQuery{
		Caller:   middleware.CallerFromContext(r.Context()),
		ClientID: r.PathValue("id"),
		Page:     params.Page,
		PerPage:  params.PerPage,
	}, projections.TrainingLogDeps{
		ClientTemplates: a.stores.ClientTemplates,
		Users:           a.stores.Users,
		Cache:           a.services.Cache,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trainingLogResponse{
		Sessions:    toClientSessionResponses(res.Sessions),
		CurrentPage: res.CurrentPage,
		EndPage:     res.EndPage,
		Total:       res.Total,
	})
}
