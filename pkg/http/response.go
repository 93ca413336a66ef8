package http

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "atelier/pkg/errors"
)

type ErrorResponse struct {
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data"`
}

type ListResponse struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError renders any error as JSON. AppErrors keep their status and code,
// anything else becomes a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
	default:
		appErr = apperrors.Internal("Internal server error", err)
	}

	statusCode := appErr.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	message := appErr.Message
	if statusCode >= http.StatusInternalServerError && appErr.Code == apperrors.CodeInternal {
		message = "Internal server error"
	}

	WriteJSON(w, statusCode, ErrorResponse{
		Code:    appErr.Code,
		Error:   message,
		Details: appErr.Details,
	})
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteList(w http.ResponseWriter, data any, count int) {
	WriteJSON(w, http.StatusOK, ListResponse{Data: data, Count: count})
}
