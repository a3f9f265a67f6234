package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gst-billing/internal/app"
	"gst-billing/internal/core"
	"gst-billing/internal/lock"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a service error to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, app.ErrNoDefaultCompany):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, core.ErrEmptyReturn):
		return http.StatusBadRequest, "EMPTY_RETURN"
	case errors.Is(err, core.ErrRefundDetailsMissing):
		return http.StatusBadRequest, "REFUND_DETAILS_MISSING"
	case errors.Is(err, core.ErrQuantityExceeded):
		return http.StatusConflict, "QUANTITY_EXCEEDED"
	case errors.Is(err, core.ErrInsufficientStock):
		return http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, core.ErrDuplicatePosting):
		return http.StatusConflict, "DUPLICATE_POSTING"
	case errors.Is(err, lock.ErrNotObtained):
		return http.StatusServiceUnavailable, "BUSY"
	case errors.Is(err, core.ErrRoundingMismatch):
		return http.StatusInternalServerError, "ROUNDING_MISMATCH"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// writeServiceError writes err with the status errorStatus assigns. Internal
// failures are logged and their details withheld from the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	resp := errorResponse{Error: err.Error(), Code: code, RequestID: requestIDFromContext(r.Context())}

	var calcErr *core.CalcError
	if errors.As(err, &calcErr) {
		resp.Field = calcErr.Field
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.log.Error("request failed",
			zap.String("request_id", resp.RequestID),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err))
		if code == "INTERNAL" {
			resp.Error = "internal server error"
		}
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeErrorResponse(w, status, resp)
}
