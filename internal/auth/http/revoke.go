package http

import (
	"errors"
	"net/http"

	"github.com/keywarden/keywarden/internal/auth/service"
	"github.com/keywarden/keywarden/pkg/authsdk"
	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// RevokeHandler serves POST /v1/token/revoke. The account is taken from the
// verified bearer credential, never from the body.
type RevokeHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Revoke
//	@Description	Clears the caller's refresh slot, ending the session. Idempotent: revoking an
//	@Description	already-revoked session still returns 204.
//	@Tags			Tokens
//	@Produce		json
//	@Success		204	"session revoked"
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		404	{object}	authsdk.ErrorResponse	"unknown account"
//	@Failure		500	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/token/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok || accountID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.AuthService.Revoke(ctx, accountID); err != nil {
		if errors.Is(err, service.ErrUnknownAccount) {
			authsdk.ErrUnknownAccount.WriteError(w)
			return
		}
		log.Error("revoke failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
