package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/keywarden/keywarden/internal/auth/service"
	"github.com/keywarden/keywarden/pkg/authsdk"
	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// LoginHandler serves POST /v1/accounts/token.
type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Login
//	@Description	Exchanges a username and password for an access and refresh credential pair.
//	@Description	Logging in overwrites the account's refresh slot, terminating any prior session.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest		true	"Credentials"
//	@Success		200		{object}	authsdk.TokenPairResponse	"account_id, username, access_token, expires_at, refresh_token"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Header			200		{string}	Cache-Control				"no-store"
//	@Router			/v1/accounts/token [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AuthService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			authsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// decodeBody parses a JSON request body after checking the declared
// content type. Unknown fields are ignored, matching encoding/json defaults.
func decodeBody(r *http.Request, target any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		return errors.New("unsupported content type")
	}
	return json.NewDecoder(r.Body).Decode(target)
}
