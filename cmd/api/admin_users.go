package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medimart/internal/domain/accounts"
	"medimart/internal/params"
)

// adminAccount adds the statuses an administrator may move the account to,
// so clients can render only the legal actions.
type adminAccount struct {
	*accounts.Account
	AllowedTransitions []accounts.Status `json:"allowed_transitions"`
}

func newAdminAccount(a *accounts.Account) adminAccount {
	return adminAccount{Account: a, AllowedTransitions: accounts.AllowedTransitions(a.Status)}
}

type usersListResponse struct {
	Users      []adminAccount    `json:"users"`
	Pagination params.Pagination `json:"pagination"`
}

// listUsersHandler godoc
//
//	@Summary		List accounts (Admin)
//	@Description	Lists accounts newest first, optionally filtered by status, role and a name/email/phone/shop search.
//	@Tags			admin-users
//	@Produce		json
//	@Param			status	query		string	false	"PENDING, APPROVED, REJECTED or SUSPENDED"
//	@Param			role	query		string	false	"ADMIN, SHOP_OWNER, SUPPLIER or DELIVERY_BOY"
//	@Param			search	query		string	false	"Search text"
//	@Param			page	query		int		false	"Page (default 1)"
//	@Param			limit	query		int		false	"Page size (default 15, max 30)"
//	@Success		200		{object}	usersListResponse
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error
//	@Failure		403		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users [get]
func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := accounts.ListFilters{
		Status: accounts.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Role:   accounts.Role(strings.ToUpper(strings.TrimSpace(q.Get("role")))),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if filters.Status != "" && !filters.Status.Valid() {
		app.badRequestResponse(w, r, fmt.Errorf("%w: %q", accounts.ErrInvalidStatus, filters.Status))
		return
	}
	if filters.Role != "" && !filters.Role.Valid() {
		app.badRequestResponse(w, r, fmt.Errorf("invalid role %q", filters.Role))
		return
	}

	p := params.ParsePagination(q)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, total, err := app.store.Accounts.List(ctx, filters, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	out := make([]adminAccount, 0, len(list))
	for _, a := range list {
		out = append(out, newAdminAccount(a))
	}

	if err := app.jsonResponse(w, http.StatusOK, usersListResponse{Users: out, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type changeStatusPayload struct {
	Status string `json:"status" validate:"required,account_status"`
}

type statusChangeResponse struct {
	adminAccount
	PreviousStatus accounts.Status `json:"previous_status"`
}

// approveUserHandler godoc
//
//	@Summary		Approve an account (Admin)
//	@Description	Moves the account to APPROVED when the current status allows it.
//	@Tags			admin-users
//	@Produce		json
//	@Param			userID	path		int	true	"Account ID"
//	@Success		200		{object}	statusChangeResponse
//	@Failure		400		{object}	error	"Transition not allowed"
//	@Failure		401		{object}	error
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/approve [post]
func (app *application) approveUserHandler(w http.ResponseWriter, r *http.Request) {
	app.changeStatus(w, r, accounts.StatusApproved)
}

// changeUserStatusHandler godoc
//
//	@Summary		Change account status (Admin)
//	@Description	Applies a status change. Allowed: PENDING to APPROVED, REJECTED or SUSPENDED; APPROVED to REJECTED or SUSPENDED; REJECTED or SUSPENDED to APPROVED.
//	@Tags			admin-users
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int						true	"Account ID"
//	@Param			payload	body		changeStatusPayload		true	"Target status"
//	@Success		200		{object}	statusChangeResponse
//	@Failure		400		{object}	error	"Invalid or disallowed status"
//	@Failure		401		{object}	error
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/status [patch]
func (app *application) changeUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	var payload changeStatusPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.changeStatus(w, r, accounts.Status(payload.Status))
}

func (app *application) changeStatus(w http.ResponseWriter, r *http.Request, to accounts.Status) {
	admin := getUserFromContext(r)

	userID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	account, previous, err := app.store.Accounts.ChangeStatus(ctx, userID, to, admin.ID)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, accounts.ErrInvalidTransition), errors.Is(err, accounts.ErrInvalidStatus):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.logger.Infow("account status changed",
		"account_id", account.ID, "from", previous, "to", account.Status, "admin_id", admin.ID)
	app.metrics.statusChanged(string(account.Status))
	app.sendStatusEmail(account, previous)

	resp := statusChangeResponse{adminAccount: newAdminAccount(account), PreviousStatus: previous}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getUserStatusHistoryHandler godoc
//
//	@Summary		Account status history (Admin)
//	@Description	Lists the recorded status changes of an account, newest first.
//	@Tags			admin-users
//	@Produce		json
//	@Param			userID	path		int	true	"Account ID"
//	@Success		200		{array}		accounts.StatusEvent
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/status-history [get]
func (app *application) getUserStatusHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := app.store.Accounts.GetByID(ctx, userID); err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	events, err := app.store.Accounts.StatusHistory(ctx, userID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, events); err != nil {
		app.internalServerError(w, r, err)
	}
}
