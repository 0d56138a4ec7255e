package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// errorResponse is the JSON error shape for every failed request.
// Field is set for validation failures so clients can highlight the
// offending input.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps domain errors onto HTTP statuses. Validation and
// category resolution failures are unprocessable input, not server
// faults.
func writeError(w http.ResponseWriter, err error) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Message, Field: ve.Field})
		return
	}

	var notFound *core.CategoryNotFoundError
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: notFound.Error(), Field: "category"})
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, core.ErrDuplicateCategory):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "category already exists"})
	case errors.Is(err, core.ErrDuplicateEmail):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "email already registered"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Message: "must be valid JSON"}
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, &core.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

// requestUser pulls the authenticated user from the context. The auth
// middleware guarantees it is present on protected routes.
func requestUser(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}

// parsePeriod reads optional start_date and end_date query parameters.
func parsePeriod(r *http.Request) (core.Period, error) {
	var period core.Period

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		start, err := core.ParseDate(raw)
		if err != nil {
			return core.Period{}, &core.ValidationError{Field: "start_date", Message: "must be a valid date in YYYY-MM-DD format"}
		}
		period.Start = start
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		end, err := core.ParseDate(raw)
		if err != nil {
			return core.Period{}, &core.ValidationError{Field: "end_date", Message: "must be a valid date in YYYY-MM-DD format"}
		}
		period.End = end
	}
	return period, nil
}
