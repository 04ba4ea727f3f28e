package http

import (
	"errors"
	"net/http"

	"github.com/keywarden/keywarden/internal/auth/service"
	"github.com/keywarden/keywarden/pkg/authsdk"
	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// RefreshHandler serves POST /v1/token/refresh.
type RefreshHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Refresh
//	@Description	Rotates a credential pair. The access credential may be expired; it names the
//	@Description	account. The refresh credential must match the account's current session slot.
//	@Description	The consumed pair is invalid the moment rotation succeeds.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest		true	"Current credential pair"
//	@Success		200		{object}	authsdk.TokenPairResponse	"account_id, access_token, expires_at, refresh_token"
//	@Failure		400		{object}	authsdk.ErrorResponse		"malformed access, session mismatch or invalid refresh"
//	@Failure		404		{object}	authsdk.ErrorResponse		"unknown account"
//	@Failure		500		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Header			200		{string}	Cache-Control				"no-store"
//	@Router			/v1/token/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AuthService.Refresh(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedAccess):
			authsdk.ErrMalformedAccess.WriteError(w)
		case errors.Is(err, service.ErrUnknownAccount):
			authsdk.ErrUnknownAccount.WriteError(w)
		case errors.Is(err, service.ErrSessionMismatch):
			authsdk.ErrSessionMismatch.WriteError(w)
		case errors.Is(err, service.ErrInvalidRefresh):
			authsdk.ErrInvalidRefresh.WriteError(w)
		default:
			log.Error("refresh failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}
