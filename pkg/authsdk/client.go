package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a keywarden server. The zero value is not usable; build
// one with NewClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges a username and password for a credential pair.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPairResponse, error) {
	var pair TokenPairResponse
	err := c.postJSON(ctx, "/v1/accounts/token", "",
		LoginRequest{Username: username, Password: password}, &pair, http.StatusOK)
	return pair, err
}

// Register creates an account and returns the auto-login credential pair.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (TokenPairResponse, error) {
	var pair TokenPairResponse
	err := c.postJSON(ctx, "/v1/accounts", "", req, &pair, http.StatusOK)
	return pair, err
}

// Refresh rotates a credential pair. The access credential may be expired.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (TokenPairResponse, error) {
	var pair TokenPairResponse
	err := c.postJSON(ctx, "/v1/token/refresh", "",
		RefreshRequest{AccessToken: accessToken, RefreshToken: refreshToken}, &pair, http.StatusOK)
	return pair, err
}

// Revoke terminates the session of the account the access credential names.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/token/revoke", accessToken, nil)
	if err != nil {
		return err
	}
	return checkNoContent(resp)
}

// GetAccount fetches an account by id.
func (c *Client) GetAccount(ctx context.Context, accessToken, id string) (AccountResponse, error) {
	var account AccountResponse
	err := c.getJSON(ctx, "/v1/accounts/"+url.PathEscape(id), accessToken, &account)
	return account, err
}

// GetAccountByUsername fetches an account by username.
func (c *Client) GetAccountByUsername(ctx context.Context, accessToken, username string) (AccountResponse, error) {
	var account AccountResponse
	err := c.getJSON(ctx, "/v1/accounts/username/"+url.PathEscape(username), accessToken, &account)
	return account, err
}

// GetAccountByEmail fetches an account by email.
func (c *Client) GetAccountByEmail(ctx context.Context, accessToken, email string) (AccountResponse, error) {
	var account AccountResponse
	err := c.getJSON(ctx, "/v1/accounts/email?email="+url.QueryEscape(email), accessToken, &account)
	return account, err
}

// ListAccounts returns every account. Requires the Admin role.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]AccountResponse, error) {
	var accounts []AccountResponse
	err := c.getJSON(ctx, "/v1/accounts", accessToken, &accounts)
	return accounts, err
}

// UpdateProfile changes the caller's own name fields.
func (c *Client) UpdateProfile(ctx context.Context, accessToken, username string, req UpdateProfileRequest) (AccountResponse, error) {
	var account AccountResponse
	err := c.sendJSON(ctx, http.MethodPut, "/v1/accounts/"+url.PathEscape(username),
		accessToken, req, &account, http.StatusOK)
	return account, err
}

// ChangePassword replaces the caller's own password.
func (c *Client) ChangePassword(ctx context.Context, accessToken, username string, req ChangePasswordRequest) error {
	resp, err := c.doJSON(ctx, http.MethodPut,
		"/v1/accounts/"+url.PathEscape(username)+"/password", accessToken, req)
	if err != nil {
		return err
	}
	return checkNoContent(resp)
}

// AddRole grants a role to an account. Requires the Admin role.
func (c *Client) AddRole(ctx context.Context, accessToken, accountID, role string) error {
	resp, err := c.doJSON(ctx, http.MethodPost,
		"/v1/accounts/"+url.PathEscape(accountID)+"/roles", accessToken, RoleChangeRequest{Role: role})
	if err != nil {
		return err
	}
	return checkNoContent(resp)
}

// RemoveRole withdraws a role from an account. Requires the Admin role.
func (c *Client) RemoveRole(ctx context.Context, accessToken, accountID, role string) error {
	resp, err := c.doJSON(ctx, http.MethodDelete,
		"/v1/accounts/"+url.PathEscape(accountID)+"/roles", accessToken, RoleChangeRequest{Role: role})
	if err != nil {
		return err
	}
	return checkNoContent(resp)
}

// ListRoles returns every role in the system.
func (c *Client) ListRoles(ctx context.Context, accessToken string) ([]RoleResponse, error) {
	var roles []RoleResponse
	err := c.getJSON(ctx, "/v1/roles", accessToken, &roles)
	return roles, err
}

// GetRole fetches a single role by id.
func (c *Client) GetRole(ctx context.Context, accessToken, id string) (RoleResponse, error) {
	var role RoleResponse
	err := c.getJSON(ctx, "/v1/roles/"+url.PathEscape(id), accessToken, &role)
	return role, err
}

// Livez reports whether the server is up.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var health HealthResponse
	err := c.getJSON(ctx, "/livez", "", &health)
	return health, err
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, method, path, accessToken, bytes.NewReader(encoded))
}

func (c *Client) postJSON(ctx context.Context, path, accessToken string, body, target any, expected int) error {
	return c.sendJSON(ctx, http.MethodPost, path, accessToken, body, target, expected)
}

func (c *Client) sendJSON(ctx context.Context, method, path, accessToken string, body, target any, expected int) error {
	resp, err := c.doJSON(ctx, method, path, accessToken, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, expected)
}

func (c *Client) getJSON(ctx context.Context, path, accessToken string, target any) error {
	resp, err := c.do(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, http.StatusOK)
}

// decodeJSON reads the body once, turning non-expected statuses into a typed
// *APIError and decoding successful responses into target.
func decodeJSON(resp *http.Response, target any, expected int) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != expected {
		return parseErrorResponse(resp.StatusCode, raw)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkNoContent(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		raw, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp.StatusCode, raw)
	}
	return nil
}

func parseErrorResponse(status int, raw []byte) error {
	var body ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &APIError{
			StatusCode:  status,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected status %d", status),
		}
	}
	return &APIError{StatusCode: status, Code: body.Error, Description: body.ErrorDescription}
}
