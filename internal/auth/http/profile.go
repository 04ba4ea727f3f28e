package http

import (
	"errors"
	"net/http"

	"github.com/keywarden/keywarden/internal/auth/service"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/pkg/authsdk"
	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// ProfileHandler serves self-service profile and password updates.
type ProfileHandler struct {
	AccountService *service.AccountService
}

// HandleUpdateProfile godoc
//
//	@Summary		Update profile
//	@Description	Changes the caller's own name fields. The avatar is regenerated from the
//	@Description	new display name.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			username	path		string						true	"Username (must be the caller)"
//	@Param			body		body		authsdk.UpdateProfileRequest	true	"New name fields"
//	@Success		200			{object}	authsdk.AccountResponse		"updated account"
//	@Failure		401			{object}	authsdk.ErrorResponse		"missing or invalid access credential"
//	@Failure		403			{object}	authsdk.ErrorResponse		"not the caller's account"
//	@Failure		404			{object}	authsdk.ErrorResponse		"unknown account"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{username} [put].
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	caller, ok := httpx.UsernameFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.UpdateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	account, err := h.AccountService.UpdateProfile(ctx, caller,
		r.PathValue("username"), req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			authsdk.ErrForbidden.WriteError(w)
		case errors.Is(err, store.ErrNotFound):
			authsdk.ErrUnknownAccount.WriteError(w)
		default:
			log.Error("profile update failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountResponse(account, nil))
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the caller's own password after checking the old one.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			username	path	string							true	"Username (must be the caller)"
//	@Param			body		body	authsdk.ChangePasswordRequest	true	"Old and new passwords"
//	@Success		204			"password changed"
//	@Failure		401			{object}	authsdk.ErrorResponse	"wrong old password or invalid credential"
//	@Failure		403			{object}	authsdk.ErrorResponse	"not the caller's account"
//	@Failure		404			{object}	authsdk.ErrorResponse	"unknown account"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{username}/password [put].
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	caller, ok := httpx.UsernameFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.AccountService.ChangePassword(ctx, caller,
		r.PathValue("username"), req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			authsdk.ErrForbidden.WriteError(w)
		case errors.Is(err, service.ErrInvalidCredentials):
			authsdk.ErrInvalidCredentials.WriteError(w)
		case errors.Is(err, service.ErrInvalidInput):
			authsdk.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, store.ErrNotFound):
			authsdk.ErrUnknownAccount.WriteError(w)
		default:
			log.Error("password change failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
