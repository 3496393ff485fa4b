package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"medimart/internal/domain/carts"
)

type addCartItemPayload struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,lte=10000"`
}

// quantity zero or less removes the line
type updateCartItemPayload struct {
	Quantity *int `json:"quantity" validate:"required,lte=10000"`
}

func (app *application) cartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, carts.ErrItemNotFound), errors.Is(err, carts.ErrProductUnavailable):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, carts.ErrInvalidQuantity):
		app.badRequestResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

// respondWithCart writes the current cart of the authenticated account.
func (app *application) respondWithCart(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, status int) {
	view, err := app.store.Carts.View(ctx, userID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, status, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getCartHandler godoc
//
//	@Summary		View cart
//	@Description	Returns the cart priced at current sell prices with item and price totals.
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	carts.View
//	@Failure		401	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	account := getUserFromContext(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	app.respondWithCart(ctx, w, r, account.ID, http.StatusOK)
}

// addCartItemHandler godoc
//
//	@Summary		Add to cart
//	@Description	Adds a published product; adding a product already in the cart increases its quantity.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		addCartItemPayload	true	"Product and quantity"
//	@Success		200		{object}	carts.View
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error
//	@Failure		404		{object}	error	"Product not found or not published"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/items [post]
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	account := getUserFromContext(r)

	var payload addCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Carts.AddItem(ctx, account.ID, payload.ProductID, payload.Quantity); err != nil {
		app.cartError(w, r, err)
		return
	}

	app.respondWithCart(ctx, w, r, account.ID, http.StatusOK)
}

// updateCartItemHandler godoc
//
//	@Summary		Set cart quantity
//	@Description	Sets the quantity of a cart line. Zero or less removes the line.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int						true	"Product ID"
//	@Param			payload		body		updateCartItemPayload	true	"Quantity"
//	@Success		200			{object}	carts.View
//	@Failure		400			{object}	error
//	@Failure		401			{object}	error
//	@Failure		404			{object}	error	"Product not in cart"
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/items/{productID} [patch]
func (app *application) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	account := getUserFromContext(r)

	productID, err := readIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload updateCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Carts.SetQuantity(ctx, account.ID, productID, *payload.Quantity); err != nil {
		app.cartError(w, r, err)
		return
	}

	app.respondWithCart(ctx, w, r, account.ID, http.StatusOK)
}

// removeCartItemHandler godoc
//
//	@Summary		Remove from cart
//	@Tags			cart
//	@Produce		json
//	@Param			productID	path		int	true	"Product ID"
//	@Success		200			{object}	carts.View
//	@Failure		400			{object}	error
//	@Failure		401			{object}	error
//	@Failure		404			{object}	error	"Product not in cart"
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/items/{productID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	account := getUserFromContext(r)

	productID, err := readIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Carts.RemoveItem(ctx, account.ID, productID); err != nil {
		app.cartError(w, r, err)
		return
	}

	app.respondWithCart(ctx, w, r, account.ID, http.StatusOK)
}

// clearCartHandler godoc
//
//	@Summary		Clear cart
//	@Tags			cart
//	@Success		204
//	@Failure		401	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	account := getUserFromContext(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Carts.Clear(ctx, account.ID); err != nil {
		app.cartError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
