// Package httputil centralizes JSON encoding, request decoding, and domain
// error translation for HTTP handlers so every endpoint speaks the same
// envelope.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "civreg/pkg/domain-errors"
)

// errorResponse is the JSON error envelope returned to callers.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so infrastructure details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.Message(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// Validator is implemented by request DTOs that validate their own shape.
type Validator interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, rejects unknown fields,
// and runs the DTO's validation. On failure it writes the error response and
// returns ok=false; handlers just return.
func DecodeAndPrepare[T Validator](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		logger.WarnContext(ctx, "request body decode failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}

	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return req, false
	}

	return req, true
}
