package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// JSONResponse writes a successful JSON response.
func JSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// JSONResponseStatus writes a JSON response with a specific status code.
func JSONResponseStatus(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// HandleError inspects error type and writes appropriate response.
func HandleError(w http.ResponseWriter, err error) {
	if pe := plankerrors.AsPlankError(err); pe != nil {
		JSONResponseStatus(w, pe.ToAPIError(), pe.HTTPStatus())
		return
	}
	// Fallback for unknown errors
	JSONResponseStatus(w, plankerrors.APIError{
		Code: "INTERNAL",
		What: err.Error(),
	}, http.StatusInternalServerError)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads a JSON request body into v. Unknown fields are rejected
// so a misspelled patch field is not silently ignored.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return plankerrors.ErrInvalidInput("body", "request body is empty")
		}
		return plankerrors.ErrInvalidInput("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}
