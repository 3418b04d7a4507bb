// Package httputil centralizes JSON response writing so every handler emits
// the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asaskevich/govalidator"

	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into T and runs its valid struct tags.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body")
	}
	if ok, err := govalidator.ValidateStruct(req); !ok {
		return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "request validation failed")
	}
	return req, nil
}

// WriteError translates a domain error into the uniform JSON error envelope.
// Internal errors omit the description so data-layer detail never reaches
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}

	var de *dErrors.DomainError
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		resp.ErrorDescription = de.Message
		resp.Fields = de.Fields
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}
