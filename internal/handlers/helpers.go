// Package handlers exposes the HTTP API. Every endpoint answers with the
// same envelope: {"success": bool, "message": string, "data": ...}.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// APIResponse is the response envelope shared by every endpoint.
type APIResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    interface{}   `json:"data,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail describes one failed field of a validation error.
type ErrorDetail struct {
	Loc  string `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// RequireMethod validates that the request uses the given method. Returns
// false after writing the error response when it does not.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(payload)
}

// WriteData writes a success envelope carrying data.
func WriteData(w http.ResponseWriter, statusCode int, message string, data interface{}) error {
	return WriteJSON(w, statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, APIResponse{
		Success: false,
		Message: message,
	})
}

// WriteValidationError writes a 422 envelope with per-field details when err
// carries field-level validation failures, a 400 envelope otherwise.
func WriteValidationError(w http.ResponseWriter, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return WriteError(w, http.StatusBadRequest, err.Error())
	}

	details := make([]ErrorDetail, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		details = append(details, ErrorDetail{
			Loc:  fieldErr.Field(),
			Msg:  fmt.Sprintf("failed validation on '%s'", fieldErr.Tag()),
			Type: fieldErr.Tag(),
		})
	}
	return WriteJSON(w, http.StatusUnprocessableEntity, APIResponse{
		Success: false,
		Message: "Validation failed",
		Details: details,
	})
}

// DecodeJSON reads the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
