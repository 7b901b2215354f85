package web

import (
	"errors"
	"io"
	"net/http"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
	"coachdesk/internal/domain/apperr"
)

// handleValidSessions handles GET /api/check-ins/{id}/sessions.
func (a *app) handleValidSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := projections.QueryValidSessions(r.Context(), projections.ValidSessionsQuery{
		Caller:    middleware.CallerFromContext(r.Context()),
		CheckInID: r.PathValue("id"),
	}, projections.ValidSessionsDeps{
		CheckIns:        a.stores.CheckIns,
		ClientTemplates: a.stores.ClientTemplates,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientSessionResponses(sessions))
}

// handleUpdateCheckIn handles PATCH /api/check-ins/{id}.
func (a *app) handleUpdateCheckIn(w http.ResponseWriter, r *http.Request) {
	var req updateCheckInRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ci, err := orchestrators.ExecuteUpdateCheckIn(r.Context(), orchestrators.UpdateCheckInInput{
		Caller:        middleware.CallerFromContext(r.Context()),
		CheckInID:     r.PathValue("id"),
		CoachComment:  req.CoachComment,
		ClientComment: req.ClientComment,
		Completed:     req.Completed,
	}, orchestrators.UpdateCheckInDeps{
		CheckIns:  a.stores.CheckIns,
		Templates: a.stores.ClientTemplates,
		Users:     a.stores.Users,
		Effects:   a.effects(),
		Now:       a.now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckInResponse(ci))
}

// handleUploadCheckInImage handles PUT /api/check-ins/{id}/images/{slot}. The body is the
// raw image and Content-Type names its format.
func (a *app) handleUploadCheckInImage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, orchestrators.MaxImageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.InvalidInput("image exceeds %d bytes", orchestrators.MaxImageBytes))
			return
		}
		writeError(w, r, apperr.InvalidInput("read image body: %s", err.Error()))
		return
	}
	res, err := orchestrators.ExecuteUploadCheckInImage(r.Context(), orchestrators.UploadCheckInImageInput{
		Caller:      middleware.CallerFromContext(r.Context()),
		CheckInID:   r.PathValue("id"),
		Slot:        r.PathValue("slot"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	}, orchestrators.UploadCheckInImageDeps{
		CheckIns:   a.stores.CheckIns,
		Templates:  a.stores.ClientTemplates,
		Images:     a.services.Images,
		GenerateID: a.generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadImageResponse{CheckIn: toCheckInResponse(res.CheckIn), Key: res.Key, URL: res.URL})
}
