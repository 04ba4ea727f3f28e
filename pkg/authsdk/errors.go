package authsdk

import (
	"fmt"
	"net/http"

	"github.com/keywarden/keywarden/pkg/httpx"
)

// Error codes carried in the "error" field of ErrorResponse.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeUnknownAccount     = "unknown_account"
	ErrorCodeMalformedAccess    = "malformed_access_token"
	ErrorCodeSessionMismatch    = "session_mismatch"
	ErrorCodeInvalidRefresh     = "invalid_refresh_token"
	ErrorCodeDuplicateAccount   = "duplicate_account"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeUnknownRole        = "unknown_role"
	ErrorCodeAlreadyInRole      = "already_in_role"
	ErrorCodeNotInRole          = "not_in_role"
	ErrorCodeServerError        = "server_error"
)

// APIError is a wire-visible error: the server writes it, the client returns
// it. It implements the error interface on both sides.
type APIError struct {
	// StatusCode is the HTTP status the error travels with.
	StatusCode int `json:"-"`

	// Code is the machine-readable error code.
	Code string `json:"error"`

	// Description elaborates for humans.
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error as the standard JSON envelope.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

var (
	// ErrInvalidRequest covers malformed JSON bodies and missing fields.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	// ErrInvalidCredentials is the single answer to any bad login, whether
	// the account is unknown or the password is wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}

	// ErrInvalidToken is returned when the bearer credential is missing,
	// invalid or expired.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access credential is missing, invalid or expired",
	}

	// ErrUnknownAccount is returned when the account named by a credential
	// or path no longer exists.
	ErrUnknownAccount = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeUnknownAccount,
		Description: "no such account",
	}

	// ErrMalformedAccess is returned during rotation when the presented
	// access credential fails any check other than expiry.
	ErrMalformedAccess = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMalformedAccess,
		Description: "the access credential is malformed",
	}

	// ErrSessionMismatch is returned during rotation when the refresh
	// credential does not match the account's current session slot.
	ErrSessionMismatch = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeSessionMismatch,
		Description: "the refresh credential does not match the current session",
	}

	// ErrInvalidRefresh is returned during rotation when the refresh
	// credential fails its own verification.
	ErrInvalidRefresh = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRefresh,
		Description: "the refresh credential is invalid or expired",
	}

	// ErrDuplicateAccount is returned when the username or email is taken.
	ErrDuplicateAccount = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeDuplicateAccount,
		Description: "username or email already registered",
	}

	// ErrForbidden is returned when a caller touches an account that is not
	// their own, or lacks a required role.
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "not allowed",
	}

	// ErrUnknownRole is returned for a role name the system does not know.
	ErrUnknownRole = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnknownRole,
		Description: "no such role",
	}

	// ErrAlreadyInRole is returned when granting a membership that exists.
	ErrAlreadyInRole = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeAlreadyInRole,
		Description: "the account already holds this role",
	}

	// ErrNotInRole is returned when withdrawing a membership that does not
	// exist.
	ErrNotInRole = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeNotInRole,
		Description: "the account does not hold this role",
	}

	// ErrServerError is the catch-all for unexpected failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAPIError builds a one-off APIError for cases the predefined set does
// not cover.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}
