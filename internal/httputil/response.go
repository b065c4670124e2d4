package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/R3E-Network/greeno_layer/internal/errors"
	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// maxRequestBody bounds decoded JSON request bodies.
const maxRequestBody = 1 << 20

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Status  string `json:"status,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse, stamping the request trace ID.
func WriteError(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	if r != nil && resp.TraceID == "" {
		resp.TraceID = logging.GetTraceID(r.Context())
	}
	WriteJSON(w, status, resp)
}

// WriteServiceError renders a *errors.ServiceError.
// A "details" or "status" entry in its details is promoted to the matching field.
func WriteServiceError(w http.ResponseWriter, r *http.Request, se *errors.ServiceError) {
	resp := ErrorResponse{Error: se.Message, Code: string(se.Code)}
	if d, ok := se.Details["details"]; ok {
		resp.Details = fmt.Sprint(d)
	}
	if s, ok := se.Details["status"]; ok {
		resp.Status = fmt.Sprint(s)
	}
	WriteError(w, r, se.HTTPStatus, resp)
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: string(errors.CodeBadRequest)})
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message, Code: string(errors.CodeUnauthorized)})
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: message, Code: string(errors.CodeInternal)})
}

// DecodeJSON decodes a bounded JSON request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
