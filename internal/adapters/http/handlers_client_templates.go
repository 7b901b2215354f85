package web

import (
	"net/http"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

// handleInstantiateTemplate handles POST /api/client/templates.
func (a *app) handleInstantiateTemplate(w http.ResponseWriter, r *http.Request) {
	var req instantiateRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, apperr.Invalid(err))
		return
	}
	t, err := orchestrators.ExecuteInstantiateTemplate(r.Context(), orchestrators.InstantiateTemplateInput{
		Caller:       middleware.CallerFromContext(r.Context()),
		SourceRole:   role,
		SourceID:     req.SourceID,
		ClientID:     req.ClientID,
		Overrides:    req.overrides(),
		CheckInDates: req.CheckIns,
	}, orchestrators.InstantiateTemplateDeps{
		CoachTemplates:  a.stores.CoachTemplates,
		ClientTemplates: a.stores.ClientTemplates,
		Effects:         a.effects(),
		GenerateID:      a.generateID,
		Now:             a.now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientTemplateResponse(t))
}

// handleGetClientTemplate handles GET /api/client/templates/{id}.
func (a *app) handleGetClientTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := projections.QueryGetClientTemplate(r.Context(), projections.GetClientTemplateQuery{
		Caller:     middleware.CallerFromContext(r.Context()),
		TemplateID: r.PathValue("id"),
	}, projections.GetClientTemplateDeps{ClientTemplates: a.stores.ClientTemplates})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientTemplateResponse(t))
}

// handleUpdateClientTemplate handles PATCH /api/client/templates/{id}.
func (a *app) handleUpdateClientTemplate(w http.ResponseWriter, r *http.Request) {
	var req updateTemplateRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := orchestrators.ExecuteUpdateClientTemplate(r.Context(), orchestrators.UpdateClientTemplateInput{
		Caller:     middleware.CallerFromContext(r.Context()),
		TemplateID: r.PathValue("id"),
		Patch: clienttemplate.TemplatePatch{
			Name:      req.Name,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Completed: req.Completed,
			Active:    req.Active,
		},
	}, orchestrators.UpdateClientTemplateDeps{
		ClientTemplates: a.stores.ClientTemplates,
		Effects:         a.effects(),
		Now:             a.now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientTemplateResponse(t))
}

// handleCreateClientSession handles POST /api/client/templates/{id}/sessions.
func (a *app) handleCreateClientSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := orchestrators.ExecuteCreateClientSession(r.Context(), orchestrators.CreateClientSessionInput{
		Caller:          middleware.CallerFromContext(r.Context()),
		TemplateID:      r.PathValue("id"),
		Name:            req.Name,
		Completed:       req.Completed,
		ClientWeight:    req.ClientWeight,
		Comment:         req.Comment,
		Exercises:       toWork(req.Exercises),
		TrainingEntries: toWork(req.TrainingEntries),
	}, orchestrators.CreateClientSessionDeps{
		ClientTemplates: a.stores.ClientTemplates,
		Effects:         a.effects(),
		GenerateID:      a.generateID,
		Now:             a.now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientSessionResponse(s))
}

// handleGetClientSession handles GET /api/client/templates/{id}/sessions/{sid}.
func (a *app) handleGetClientSession(w http.ResponseWriter, r *http.Request) {
	s, err := projections.QueryGetClientSession(r.Context(), projections.GetClientSessionQuery{
		Caller:     middleware.CallerFromContext(r.Context()),
		TemplateID: r.PathValue("id"),
		SessionID:  r.PathValue("sid"),
	}, projections.GetClientTemplateDeps{ClientTemplates: a.stores.ClientTemplates})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientSessionResponse(s))
}

// handleUpdateClientSession handles PATCH /api/client/templates/{id}/sessions/{sid}.
func (a *app) handleUpdateClientSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch := clienttemplate.SessionPatch{
		Name:         req.Name,
		ClientWeight: req.ClientWeight,
		Comment:      req.Comment,
		Completed:    req.Completed,
	}
	var err error
	if patch.Exercises, err = a.workPatch(req.Exercises); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.TrainingEntries, err = a.workPatch(req.TrainingEntries); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := orchestrators.ExecuteUpdateClientSession(r.Context(), orchestrators.UpdateClientSessionInput{
		Caller:     middleware.CallerFromContext(r.Context()),
		TemplateID: r.PathValue("id"),
		SessionID:  r.PathValue("sid"),
		Patch:      patch,
	}, orchestrators.UpdateClientSessionDeps{
		ClientTemplates: a.stores.ClientTemplates,
		Effects:         a.effects(),
		GenerateID:      a.generateID,
		Now:             a.now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientSessionResponse(s))
}

// workPatch validates a replacement work list. Nil stays nil so the stored list is kept.
func (a *app) workPatch(in *[]workRequest) (*[]clienttemplate.Exercise, error) {
	if in == nil {
		return nil, nil
	}
	for i := range *in {
		if err := a.validateStruct(&(*in)[i]); err != nil {
			return nil, err
		}
	}
	work := toWork(*in)
	return &work, nil
}
