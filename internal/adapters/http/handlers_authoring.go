package web

import (
	"net/http"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
)

// handleCreateExercise handles POST /api/exercises.
func (a *app) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := orchestrators.ExecuteCreateExercise(r.Context(), orchestrators.CreateExerciseInput{
		Caller:   middleware.CallerFromContext(r.Context()),
		Category: req.Category,
		Name:     req.Name,
	}, orchestrators.CreateExerciseDeps{
		ExerciseStore: a.stores.Exercises,
		GenerateID:    a.generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExerciseResponse(e))
}

// handleCreateCoachTemplate handles POST /api/coach/templates.
func (a *app) handleCreateCoachTemplate(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := orchestrators.ExecuteCreateCoachTemplate(r.Context(), orchestrators.CreateCoachTemplateInput{
		Caller: middleware.CallerFromContext(r.Context()),
		Name:   req.Name,
	}, orchestrators.CreateCoachTemplateDeps{
		CoachTemplates: a.stores.CoachTemplates,
		GenerateID:     a.generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCoachTemplateResponse(t))
}

// handleGetCoachTemplate handles GET /api/coach/templates/{id}.
func (a *app) handleGetCoachTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := projections.QueryGetCoachTemplate(r.Context(), projections.GetCoachTemplateQuery{
		TemplateID: r.PathValue("id"),
	}, projections.GetCoachTemplateDeps{CoachTemplates: a.stores.CoachTemplates})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoachTemplateResponse(t))
}

// handleAddCoachSession handles POST /api/coach/templates/{id}/sessions.
func (a *app) handleAddCoachSession(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := orchestrators.ExecuteAddCoachSession(r.Context(), orchestrators.AddCoachSessionInput{
		Caller:     middleware.CallerFromContext(r.Context()),
		TemplateID: r.PathValue("id"),
		Name:       req.Name,
	}, orchestrators.AddCoachSessionDeps{
		CoachTemplates: a.stores.CoachTemplates,
		GenerateID:     a.generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCoachSessionResponse(s))
}

// handleAddCoachExercise handles POST /api/coach/sessions/{id}/exercises.
func (a *app) handleAddCoachExercise(w http.ResponseWriter, r *http.Request) {
	var req addCoachExerciseRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := orchestrators.ExecuteAddCoachExercise(r.Context(), orchestrators.AddCoachExerciseInput{
		Caller:     middleware.CallerFromContext(r.Context()),
		SessionID:  r.PathValue("id"),
		ExerciseID: req.ExerciseID,
	}, orchestrators.AddCoachExerciseDeps{
		CoachTemplates: a.stores.CoachTemplates,
		ExerciseStore:  a.stores.Exercises,
		GenerateID:     a.generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCoachExerciseResponse(e))
}
