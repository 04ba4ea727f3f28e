package authsdk

import "time"

// ErrorResponse is the JSON envelope every non-2xx response carries.
type ErrorResponse struct {
	// Error is the machine-readable code (e.g. "invalid_credentials").
	Error string `json:"error"`

	// ErrorDescription is a human-readable elaboration, when present.
	ErrorDescription string `json:"error_description,omitempty"`
}

// TokenPairResponse is returned by login, refresh and register: a
// short-lived access credential plus the refresh credential that rotates it.
type TokenPairResponse struct {
	AccountID    string    `json:"account_id"`
	Username     string    `json:"username,omitempty"`
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
}

// LoginRequest is the body of POST /v1/accounts/token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /v1/token/refresh. The access credential
// may be expired; it only serves to name the account.
type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest is the body of POST /v1/accounts.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// UpdateProfileRequest is the body of PUT /v1/accounts/{username}.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ChangePasswordRequest is the body of PUT /v1/accounts/{username}/password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// RoleChangeRequest is the body of POST and DELETE
// /v1/accounts/{id}/roles.
type RoleChangeRequest struct {
	Role string `json:"role"`
}

// AccountResponse is the public view of an account. The password hash and
// avatar bytes never leave the server through this type.
type AccountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleResponse is the public view of a role.
type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version,omitempty"`
	Uptime  string        `json:"uptime,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks carries per-dependency readiness detail.
type HealthChecks struct {
	Database string `json:"database"`
}
