package hostfuncs

import (
	"encoding/json"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
)

// ErrorResponse is the structured error returned to guests as JSON when a
// host function cannot produce its typed response. It shares the "error"
// field with every typed response so guests check one place.
type ErrorResponse struct {
	Error *entities.ErrorDetail `json:"error"`
}

// ToJSON serializes the ErrorResponse to JSON bytes.
// Returns nil if serialization fails (which should never happen for this simple type).
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError creates an error response for bad input (e.g., malformed JSON).
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: &entities.ErrorDetail{
		Type:    "validation",
		Code:    "VALIDATION_ERROR",
		Message: message,
	}}
}

// NewNotFoundError creates an error response for unknown handler names.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{Error: &entities.ErrorDetail{
		Type:       "internal",
		Code:       "NOT_FOUND",
		Message:    "unknown host function: " + name,
		IsNotFound: true,
	}}
}

// NewInternalError creates an error response for unexpected failures.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: &entities.ErrorDetail{
		Type:    "internal",
		Code:    "INTERNAL_ERROR",
		Message: message,
	}}
}

// NewPanicError creates an error response for recovered panics.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return ErrorResponse{Error: &entities.ErrorDetail{
		Type:    "panic",
		Code:    "INTERNAL_ERROR",
		Message: "panic: " + msg,
	}}
}

// NewErrorResponse wraps any error using the taxonomy's detail conversion.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: errors.ToErrorDetail(err)}
}
