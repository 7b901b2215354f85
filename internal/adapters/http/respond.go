package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"coachdesk/internal/domain/apperr"
)

// maxJSONBody bounds request bodies other than image uploads.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http_event", "event", "encode_failed", "error", err)
	}
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrInvalidInput:
		return http.StatusBadRequest
	case apperr.ErrConflict:
		return http.StatusConflict
	case apperr.ErrForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError writes {"error": message}. Internal errors are logged with their cause and
// surface only a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("internal_error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields, then validates v's tags.
// POST: any failure is InvalidInput
func (a *app) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidInput("request body is required")
		}
		return apperr.InvalidInput("invalid JSON body: %s", err.Error())
	}
	return a.validateStruct(v)
}

// validateStruct runs the validator and turns field errors into one InvalidInput message.
func (a *app) validateStruct(v any) error {
	err := a.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Internal(err, "validate request")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.InvalidInput("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date, got %q", field, fmt.Sprint(fe.Value()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
