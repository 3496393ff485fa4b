package main

import (
	"context"
	"net/http"
	"time"

	"medimart/internal/domain/catalog"
)

// listBrandsHandler godoc
//
//	@Summary		List brand names
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}		string
//	@Failure		500	{object}	error
//	@Router			/brands [get]
func (app *application) listBrandsHandler(w http.ResponseWriter, r *http.Request) {
	app.listNames(w, r, app.store.Catalog.ListBrandNames)
}

// listGenericsHandler godoc
//
//	@Summary		List generic names
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}		string
//	@Failure		500	{object}	error
//	@Router			/generics [get]
func (app *application) listGenericsHandler(w http.ResponseWriter, r *http.Request) {
	app.listNames(w, r, app.store.Catalog.ListGenericNames)
}

func (app *application) listNames(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]string, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names, err := fetch(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, names); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listCategoriesHandler godoc
//
//	@Summary		List product categories
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}	string
//	@Router			/categories [get]
func (app *application) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.jsonResponse(w, http.StatusOK, catalog.Categories); err != nil {
		app.internalServerError(w, r, err)
	}
}
