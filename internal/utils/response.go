package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"event-ticketing/internal/models"
)

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    Meta{Timestamp: time.Now().UTC()},
	}
}

func ErrorResponse(code, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error:   &APIError{Code: code, Message: message},
		Meta:    Meta{Timestamp: time.Now().UTC()},
	}
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, SuccessResponse(message, data))
}

type errorKind struct {
	err     error
	status  int
	code    string
	message string
}

// errorKinds maps failure kinds to their HTTP status and stable error code.
// An empty message keeps the error's own text.
var errorKinds = []errorKind{
	{models.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND", ""},
	{models.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND", ""},
	{models.ErrInvalidQuota, http.StatusBadRequest, "INVALID_QUOTA", ""},
	{models.ErrQuotaExhausted, http.StatusBadRequest, "INVALID_QUOTA", "ticket quota exhausted"},
	{models.ErrQuotaConflict, http.StatusConflict, "QUOTA_CONFLICT", ""},
	{models.ErrEventNotStarted, http.StatusBadRequest, "EVENT_NOT_STARTED", ""},
	{models.ErrEventEnded, http.StatusBadRequest, "EVENT_ENDED", ""},
	{models.ErrTicketAlreadyUsed, http.StatusBadRequest, "TICKET_ALREADY_USED", ""},
	{models.ErrInvalidPaymentMethod, http.StatusBadRequest, "INVALID_PAYMENT_METHOD", ""},
	{models.ErrInvalidTicketToken, http.StatusBadRequest, "INVALID_TICKET_TOKEN", ""},
	{ErrInvalidObjectID, http.StatusBadRequest, "INVALID_OBJECT_ID", ""},
	{ErrInvalidBody, http.StatusBadRequest, "INVALID_REQUEST_BODY", ""},
	{models.ErrGenerationFailed, http.StatusInternalServerError, "SERVER-500", ""},
}

// WriteError renders err in the response envelope. Unknown errors become a
// generic 500 without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		resp := ErrorResponse("VALIDATION_ERROR", "request validation failed")
		resp.Error.Fields = verr.Fields
		WriteJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			message := kind.message
			if message == "" {
				message = kind.err.Error()
			}
			WriteJSON(w, kind.status, ErrorResponse(kind.code, message))
			return
		}
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse("SERVER-500", "internal server error"))
}
