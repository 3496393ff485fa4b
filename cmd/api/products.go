package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medimart/internal/domain/catalog"
	"medimart/internal/params"

	"github.com/shopspring/decimal"
)

var (
	errNegativePrice  = errors.New("prices must not be negative")
	errPriceTooLarge  = errors.New("prices must be below 10000000000")
	errPricePrecision = errors.New("prices must have at most 2 decimal places")
	errNoFields       = errors.New("no fields to update")
)

type createProductPayload struct {
	Name         string           `json:"name" validate:"required,max=255"`
	Category     string           `json:"category" validate:"required,product_category"`
	MRP          *decimal.Decimal `json:"mrp" validate:"required"`
	SellPrice    *decimal.Decimal `json:"sell_price" validate:"required"`
	CostPrice    *decimal.Decimal `json:"cost_price" validate:"required"`
	GenericName  string           `json:"generic_name" validate:"max=255"`
	BrandName    string           `json:"brand_name" validate:"max=255"`
	Image        *string          `json:"image" validate:"omitempty,url,max=2048"`
	Description  *string          `json:"description" validate:"omitempty,max=5000"`
	Stock        int              `json:"stock" validate:"min=0"`
	Status       *bool            `json:"status"`
	Availability *bool            `json:"availability"`
}

// updateProductPayload is a partial update. The SKU is not accepted.
type updateProductPayload struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Category     *string          `json:"category" validate:"omitempty,product_category"`
	MRP          *decimal.Decimal `json:"mrp"`
	SellPrice    *decimal.Decimal `json:"sell_price"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	GenericName  *string          `json:"generic_name" validate:"omitempty,max=255"`
	BrandName    *string          `json:"brand_name" validate:"omitempty,max=255"`
	Image        *string          `json:"image" validate:"omitempty,url,max=2048"`
	Description  *string          `json:"description" validate:"omitempty,max=5000"`
	Stock        *int             `json:"stock" validate:"omitempty,min=0"`
	Status       *bool            `json:"status"`
	Availability *bool            `json:"availability"`
}

type productsListResponse struct {
	Products   []*catalog.PublicProduct `json:"products"`
	Pagination params.Pagination        `json:"pagination"`
}

type adminProductsListResponse struct {
	Products   []*catalog.Product `json:"products"`
	Pagination params.Pagination  `json:"pagination"`
}

// maxPrice is the exclusive bound of a NUMERIC(12,2) column.
var maxPrice = decimal.New(1, 10)

func checkPrices(prices ...*decimal.Decimal) error {
	for _, p := range prices {
		switch {
		case p == nil:
		case p.IsNegative():
			return errNegativePrice
		case p.GreaterThanOrEqual(maxPrice):
			return errPriceTooLarge
		case !p.Equal(p.Round(2)):
			return errPricePrecision
		}
	}
	return nil
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func parseListFilters(r *http.Request) (catalog.ListFilters, error) {
	q := r.URL.Query()
	f := catalog.ListFilters{
		Category: catalog.Category(strings.ToUpper(strings.TrimSpace(q.Get("category")))),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if f.Category != "" && !f.Category.Valid() {
		return f, fmt.Errorf("%w: %q", catalog.ErrInvalidCategory, f.Category)
	}
	return f, nil
}

func (app *application) catalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, catalog.ErrInvalidCategory):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, catalog.ErrSKUConflict):
		app.conflictResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

// listProductsHandler godoc
//
//	@Summary		List products
//	@Description	Lists published products newest first. Cost prices are not included.
//	@Tags			products
//	@Produce		json
//	@Param			category	query		string	false	"Product category"
//	@Param			search		query		string	false	"Name or SKU search"
//	@Param			page		query		int		false	"Page (default 1)"
//	@Param			limit		query		int		false	"Page size (default 15, max 30)"
//	@Success		200			{object}	productsListResponse
//	@Failure		400			{object}	error
//	@Failure		500			{object}	error
//	@Router			/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := parseListFilters(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	filters.PublishedOnly = true

	p := params.ParsePagination(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	products, total, err := app.store.Catalog.ListProducts(ctx, filters, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	out := make([]*catalog.PublicProduct, 0, len(products))
	for _, product := range products {
		out = append(out, product.Public())
	}

	if err := app.jsonResponse(w, http.StatusOK, productsListResponse{Products: out, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getProductHandler godoc
//
//	@Summary		Get a product
//	@Description	Returns a published product. Unpublished products are reported as not found.
//	@Tags			products
//	@Produce		json
//	@Param			productID	path		int	true	"Product ID"
//	@Success		200			{object}	catalog.PublicProduct
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Router			/products/{productID} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := app.store.Catalog.GetProduct(ctx, id, true)
	if err != nil {
		app.catalogError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, product.Public()); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminListProductsHandler godoc
//
//	@Summary		List products (Admin)
//	@Description	Lists every product, published or not, newest first.
//	@Tags			admin-products
//	@Produce		json
//	@Param			category	query		string	false	"Product category"
//	@Param			search		query		string	false	"Name or SKU search"
//	@Param			page		query		int		false	"Page (default 1)"
//	@Param			limit		query		int		false	"Page size (default 15, max 30)"
//	@Success		200			{object}	adminProductsListResponse
//	@Failure		400			{object}	error
//	@Failure		401			{object}	error
//	@Failure		403			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products [get]
func (app *application) adminListProductsHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := parseListFilters(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	p := params.ParsePagination(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	products, total, err := app.store.Catalog.ListProducts(ctx, filters, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, adminProductsListResponse{Products: products, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminGetProductHandler godoc
//
//	@Summary		Get a product (Admin)
//	@Tags			admin-products
//	@Produce		json
//	@Param			productID	path		int	true	"Product ID"
//	@Success		200			{object}	catalog.Product
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/{productID} [get]
func (app *application) adminGetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := app.store.Catalog.GetProduct(ctx, id, false)
	if err != nil {
		app.catalogError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// nextSKUHandler godoc
//
//	@Summary		Preview the next SKU (Admin)
//	@Description	Returns the SKU the next created product would get. The value is not reserved.
//	@Tags			admin-products
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/next-sku [get]
func (app *application) nextSKUHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	skus, err := app.store.Catalog.ListSKUs(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"sku": catalog.NextSKU(skus)}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createProductHandler godoc
//
//	@Summary		Create a product (Admin)
//	@Description	Creates a product. The SKU is generated; brand and generic names are linked, creating them when new.
//	@Tags			admin-products
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		createProductPayload	true	"Product"
//	@Success		201		{object}	catalog.Product
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error
//	@Failure		403		{object}	error
//	@Failure		409		{object}	error	"SKU could not be allocated"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload createProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := checkPrices(payload.MRP, payload.SellPrice, payload.CostPrice); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	in := catalog.NewProduct{
		Name:         payload.Name,
		Category:     catalog.Category(payload.Category),
		MRP:          *payload.MRP,
		SellPrice:    *payload.SellPrice,
		CostPrice:    *payload.CostPrice,
		GenericName:  strings.TrimSpace(payload.GenericName),
		BrandName:    strings.TrimSpace(payload.BrandName),
		Image:        payload.Image,
		Description:  payload.Description,
		Stock:        payload.Stock,
		Status:       boolOr(payload.Status, true),
		Availability: boolOr(payload.Availability, true),
	}

	// SKU allocation may retry with backoff.
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	product, err := app.store.Catalog.CreateProduct(ctx, in)
	if err != nil {
		app.catalogError(w, r, err)
		return
	}

	app.logger.Infow("product created", "product_id", product.ID, "sku", product.SKU)

	if err := app.jsonResponse(w, http.StatusCreated, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateProductHandler godoc
//
//	@Summary		Update a product (Admin)
//	@Description	Partially updates a product. An empty generic_name or brand_name clears the link. The SKU cannot change.
//	@Tags			admin-products
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int						true	"Product ID"
//	@Param			payload		body		updateProductPayload	true	"Fields to change"
//	@Success		200			{object}	catalog.Product
//	@Failure		400			{object}	error
//	@Failure		401			{object}	error
//	@Failure		403			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/{productID} [put]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload updateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := checkPrices(payload.MRP, payload.SellPrice, payload.CostPrice); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	patch := catalog.ProductPatch{
		Name:         payload.Name,
		MRP:          payload.MRP,
		SellPrice:    payload.SellPrice,
		CostPrice:    payload.CostPrice,
		GenericName:  payload.GenericName,
		BrandName:    payload.BrandName,
		Image:        payload.Image,
		Description:  payload.Description,
		Stock:        payload.Stock,
		Status:       payload.Status,
		Availability: payload.Availability,
	}
	if payload.Category != nil {
		c := catalog.Category(*payload.Category)
		patch.Category = &c
	}
	if patch.Empty() {
		app.badRequestResponse(w, r, errNoFields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := app.store.Catalog.UpdateProduct(ctx, id, patch)
	if err != nil {
		app.catalogError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductHandler godoc
//
//	@Summary		Delete a product (Admin)
//	@Description	Deletes a product. Cart lines holding it are removed with it.
//	@Tags			admin-products
//	@Param			productID	path	int	true	"Product ID"
//	@Success		204
//	@Failure		400	{object}	error
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/{productID} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Catalog.DeleteProduct(ctx, id); err != nil {
		app.catalogError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
