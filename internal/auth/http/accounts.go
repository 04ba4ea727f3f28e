package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/service"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/pkg/authsdk"
	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// AccountsHandler serves registration and directory lookups.
type AccountsHandler struct {
	AccountService *service.AccountService
	RolesService   *service.RolesService
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates an account with the default User role and logs it straight in,
//	@Description	returning the minted credential pair.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest		true	"New account"
//	@Success		200		{object}	authsdk.TokenPairResponse	"account_id, username, access_token, expires_at, refresh_token"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid input or duplicate username/email"
//	@Failure		500		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/accounts [post].
func (h *AccountsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AccountService.Register(ctx, service.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			authsdk.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrDuplicateAccount):
			authsdk.ErrDuplicateAccount.WriteError(w)
		default:
			log.Error("registration failed", "error", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleList godoc
//
//	@Summary		List accounts
//	@Description	Returns every account in the directory. Requires the Admin role.
//	@Tags			Accounts
//	@Produce		json
//	@Success		200	{array}		authsdk.AccountResponse	"accounts"
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		403	{object}	authsdk.ErrorResponse	"missing Admin role"
//	@Failure		500	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/accounts [get].
func (h *AccountsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accounts, err := h.AccountService.List(ctx)
	if err != nil {
		log.Error("failed to list accounts", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	response := make([]authsdk.AccountResponse, len(accounts))
	for i, account := range accounts {
		response[i] = accountResponse(account, nil)
	}
	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleGetByID godoc
//
//	@Summary		Get account by id
//	@Tags			Accounts
//	@Produce		json
//	@Param			id	path		string					true	"Account id (ULID)"
//	@Success		200	{object}	authsdk.AccountResponse	"account"
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		404	{object}	authsdk.ErrorResponse	"unknown account"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{id} [get].
func (h *AccountsHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	h.writeAccount(w, r, func() (domain.Account, error) {
		return h.AccountService.GetByID(r.Context(), r.PathValue("id"))
	})
}

// HandleGetByUsername godoc
//
//	@Summary		Get account by username
//	@Tags			Accounts
//	@Produce		json
//	@Param			username	path		string					true	"Username"
//	@Success		200			{object}	authsdk.AccountResponse	"account"
//	@Failure		401			{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		404			{object}	authsdk.ErrorResponse	"unknown account"
//	@Security		BearerAuth
//	@Router			/v1/accounts/username/{username} [get].
func (h *AccountsHandler) HandleGetByUsername(w http.ResponseWriter, r *http.Request) {
	h.writeAccount(w, r, func() (domain.Account, error) {
		return h.AccountService.GetByUsername(r.Context(), r.PathValue("username"))
	})
}

// HandleGetByEmail godoc
//
//	@Summary		Get account by email
//	@Tags			Accounts
//	@Produce		json
//	@Param			email	query		string					true	"Email address"
//	@Success		200		{object}	authsdk.AccountResponse	"account"
//	@Failure		400		{object}	authsdk.ErrorResponse	"missing email parameter"
//	@Failure		401		{object}	authsdk.ErrorResponse	"missing or invalid access credential"
//	@Failure		404		{object}	authsdk.ErrorResponse	"unknown account"
//	@Security		BearerAuth
//	@Router			/v1/accounts/email [get].
func (h *AccountsHandler) HandleGetByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	h.writeAccount(w, r, func() (domain.Account, error) {
		return h.AccountService.GetByEmail(r.Context(), email)
	})
}

func (h *AccountsHandler) writeAccount(w http.ResponseWriter, r *http.Request, fetch func() (domain.Account, error)) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	account, err := fetch()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			authsdk.ErrUnknownAccount.WriteError(w)
			return
		}
		log.Error("account lookup failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	roles, err := h.RolesService.ListForAccount(ctx, account.ID)
	if err != nil {
		log.Error("role lookup failed", "error", err, "account_id", account.ID)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountResponse(account, roles))
}

func accountResponse(account domain.Account, roles []domain.Role) authsdk.AccountResponse {
	resp := authsdk.AccountResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, role.Name)
	}
	return resp
}
