package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/service"
	"github.com/keywarden/keywarden/pkg/authsdk"
	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/idx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// RolesHandler serves the role directory and membership changes.
type RolesHandler struct {
	RolesService *service.RolesService
}

// HandleList godoc
//
//	@Summary		List roles
//	@Description	Returns every role in the system, ordered by name.
//	@Tags			Roles
//	@Produce		json
//	@Success		200	{array}		authsdk.RoleResponse	"roles"
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Security		BearerAuth
//	@Router			/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	roles, err := h.RolesService.List(ctx)
	if err != nil {
		log.Error("role listing failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]authsdk.RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse(role))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary		Get role
//	@Description	Returns a single role by id.
//	@Tags			Roles
//	@Produce		json
//	@Param			id	path		string					true	"Role id (ULID)"
//	@Success		200	{object}	authsdk.RoleResponse	"role"
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		404	{object}	authsdk.ErrorResponse	"unknown role id"
//	@Security		BearerAuth
//	@Router			/v1/roles/{id} [get].
func (h *RolesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// A malformed id cannot name a role; skip the lookup.
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		writeUnknownRoleID(w)
		return
	}

	role, err := h.RolesService.Get(ctx, id.String())
	if err != nil {
		if errors.Is(err, service.ErrUnknownRole) {
			writeUnknownRoleID(w)
			return
		}
		log.Error("role lookup failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, roleResponse(role))
}

func writeUnknownRoleID(w http.ResponseWriter) {
	authsdk.NewAPIError(http.StatusNotFound, authsdk.ErrorCodeUnknownRole,
		"no role with that id").WriteError(w)
}

func roleResponse(role domain.Role) authsdk.RoleResponse {
	return authsdk.RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

// HandleAdd godoc
//
//	@Summary		Grant role
//	@Description	Adds the account to the named role and appends the matching role claim.
//	@Description	Requires the Admin role.
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Account id (ULID)"
//	@Param			body	body	authsdk.RoleChangeRequest	true	"Role name"
//	@Success		204		"role granted"
//	@Failure		400		{object}	authsdk.ErrorResponse	"unknown role or already in role"
//	@Failure		401		{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		403		{object}	authsdk.ErrorResponse	"missing Admin role"
//	@Failure		404		{object}	authsdk.ErrorResponse	"unknown account"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{id}/roles [post].
func (h *RolesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.RolesService.AddToRole)
}

// HandleRemove godoc
//
//	@Summary		Withdraw role
//	@Description	Removes the account from the named role and drops the matching role claim.
//	@Description	Requires the Admin role.
//	@Tags			Roles
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Account id (ULID)"
//	@Param			body	body	authsdk.RoleChangeRequest	true	"Role name"
//	@Success		204		"role withdrawn"
//	@Failure		400		{object}	authsdk.ErrorResponse	"unknown role or not in role"
//	@Failure		401		{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		403		{object}	authsdk.ErrorResponse	"missing Admin role"
//	@Failure		404		{object}	authsdk.ErrorResponse	"unknown account"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{id}/roles [delete].
func (h *RolesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.RolesService.RemoveFromRole)
}

func (h *RolesHandler) change(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, accountID, role string) error,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	if claims, ok := httpx.ClaimsFromContext(ctx); ok {
		log = log.With("actor", claims.Subject)
	}

	var req authsdk.RoleChangeRequest
	if err := decodeBody(r, &req); err != nil || req.Role == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := apply(ctx, r.PathValue("id"), req.Role); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownAccount):
			authsdk.ErrUnknownAccount.WriteError(w)
		case errors.Is(err, service.ErrUnknownRole):
			authsdk.ErrUnknownRole.WriteError(w)
		case errors.Is(err, service.ErrAlreadyInRole):
			authsdk.ErrAlreadyInRole.WriteError(w)
		case errors.Is(err, service.ErrNotInRole):
			authsdk.ErrNotInRole.WriteError(w)
		default:
			log.Error("role change failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
