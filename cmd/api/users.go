package main

import (
	"net/http"

	"medimart/internal/domain/accounts"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *accounts.Account {
	if account, ok := r.Context().Value(userCtx).(*accounts.Account); ok {
		return account
	}
	return nil
}

// getCurrentUserHandler godoc
//
//	@Summary		Current account
//	@Description	Returns the authenticated account as stored, including role and status.
//	@Tags			users
//	@Produce		json
//	@Success		200	{object}	accounts.Account
//	@Failure		401	{object}	error	"Unauthorized"
//	@Security		ApiKeyAuth
//	@Router			/users/me [get]
func (app *application) getCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	account := getUserFromContext(r)

	if err := app.jsonResponse(w, http.StatusOK, account); err != nil {
		app.internalServerError(w, r, err)
	}
}
