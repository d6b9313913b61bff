package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openkermesse/stallpoints/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodePlayerExists        = "PLAYER_EXISTS"
	CodeStallNotFound       = "STALL_NOT_FOUND"
	CodeStallExists         = "STALL_EXISTS"
	CodeInvalidStallID      = "INVALID_STALL_ID"
	CodeUnknownStall        = "UNKNOWN_STALL"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeConflict            = "CONFLICT"
	CodeRolledBack          = "ROLLED_BACK"
	CodeInconsistentState   = "INCONSISTENT_STATE"
	CodeTimeout             = "TIMEOUT"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrDuplicatePlayer):
		return &httpError{http.StatusConflict, APIError{CodePlayerExists, "Player id already exists"}}
	case errors.Is(err, model.ErrEmptyPlayerID):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Player id is required"}}
	case errors.Is(err, model.ErrEmptyName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Player name is required"}}
	case errors.Is(err, model.ErrInvalidAmount):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidAmount, "Amount must be a positive integer"}}
	case errors.Is(err, model.ErrUnknownStall):
		return &httpError{http.StatusConflict, APIError{CodeUnknownStall, "Stall has no counter on this record"}}
	case errors.Is(err, model.ErrInsufficientBalance):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientBalance, "Insufficient balance"}}
	case errors.Is(err, model.ErrStallNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeStallNotFound, "Stall not found"}}
	case errors.Is(err, model.ErrDuplicateStall):
		return &httpError{http.StatusConflict, APIError{CodeStallExists, "Stall id already exists"}}
	case errors.Is(err, model.ErrInvalidStallID):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidStallID, "Stall id must be an identifier and not reserved"}}
	case errors.Is(err, model.ErrMissingField):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Required field is empty"}}

	// Two-phase stall lifecycle outcomes
	case errors.Is(err, model.ErrPartialCreateUnrecoverable):
		return &httpError{http.StatusInternalServerError, APIError{CodeInconsistentState, "Stall change failed and rollback also failed; manual intervention required"}}
	case errors.Is(err, model.ErrPartialCreateRolledBack):
		return &httpError{http.StatusConflict, APIError{CodeRolledBack, "Stall change failed and was rolled back"}}

	// Concurrency / infrastructure
	case errors.Is(err, model.ErrConflictRetryExhausted):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Too many concurrent updates, retry the operation"}}
	case errors.Is(err, model.ErrPreconditionFailed):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Record changed since it was read"}}
	case errors.Is(err, model.ErrTimeout):
		return &httpError{http.StatusGatewayTimeout, APIError{CodeTimeout, "Operation timed out"}}

	// Auth
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, model.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, model.ErrForbidden):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Operation not permitted for this session"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
