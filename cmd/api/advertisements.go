package main

import (
	"net/http"

	"medimart/internal/domain/banners"
)

type createAdvertisementPayload struct {
	Title     string  `json:"title" validate:"required,max=255"`
	ImageURL  string  `json:"image_url" validate:"required,url,max=2048"`
	Hyperlink *string `json:"hyperlink" validate:"omitempty,url,max=2048"`
	Category  string  `json:"category" validate:"required,ad_category"`
	IsVisible bool    `json:"is_visible"`
}

type updateAdvertisementPayload struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=255"`
	ImageURL  *string `json:"image_url" validate:"omitempty,url,max=2048"`
	Hyperlink *string `json:"hyperlink" validate:"omitempty,url,max=2048"`
	Category  *string `json:"category" validate:"omitempty,ad_category"`
	IsVisible *bool   `json:"is_visible"`
}

// getVisibleAdvertisementsHandler godoc
//
//	@Summary		Visible advertisements
//	@Description	Returns the advertisements currently shown to shops.
//	@Tags			advertisements
//	@Produce		json
//	@Success		200	{array}		banners.Banner
//	@Failure		500	{object}	error
//	@Router			/advertisements/visible [get]
func (app *application) getVisibleAdvertisementsHandler(w http.ResponseWriter, r *http.Request) {
	app.listBanners(w, r, banners.KindAdvertisement, true)
}

// listAdvertisementsHandler godoc
//
//	@Summary		List advertisements (Admin)
//	@Tags			admin-advertisements
//	@Produce		json
//	@Success		200	{array}		banners.Banner
//	@Failure		401	{object}	error
//	@Failure		403	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/advertisements [get]
func (app *application) listAdvertisementsHandler(w http.ResponseWriter, r *http.Request) {
	app.listBanners(w, r, banners.KindAdvertisement, false)
}

// createAdvertisementHandler godoc
//
//	@Summary		Create an advertisement (Admin)
//	@Description	Creates an advertisement. It may be created visible only while no other advertisement is visible.
//	@Tags			admin-advertisements
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		createAdvertisementPayload	true	"Advertisement"
//	@Success		201		{object}	banners.Banner
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"Another advertisement is already visible"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/advertisements [post]
func (app *application) createAdvertisementHandler(w http.ResponseWriter, r *http.Request) {
	var payload createAdvertisementPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	category := banners.AdCategory(payload.Category)
	app.createBanner(w, r, banners.NewBanner{
		Kind:      banners.KindAdvertisement,
		Title:     payload.Title,
		ImageURL:  payload.ImageURL,
		Hyperlink: payload.Hyperlink,
		Category:  &category,
		IsVisible: payload.IsVisible,
	})
}

// updateAdvertisementHandler godoc
//
//	@Summary		Update an advertisement (Admin)
//	@Description	Partially updates an advertisement. Showing it fails while another advertisement is visible; hiding always succeeds.
//	@Tags			admin-advertisements
//	@Accept			json
//	@Produce		json
//	@Param			bannerID	path		int							true	"Advertisement ID"
//	@Param			payload		body		updateAdvertisementPayload	true	"Fields to change"
//	@Success		200			{object}	banners.Banner
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Another advertisement is already visible"
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/advertisements/{bannerID} [put]
func (app *application) updateAdvertisementHandler(w http.ResponseWriter, r *http.Request) {
	var payload updateAdvertisementPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	patch := banners.Patch{
		Title:     payload.Title,
		ImageURL:  payload.ImageURL,
		Hyperlink: payload.Hyperlink,
		IsVisible: payload.IsVisible,
	}
	if payload.Category != nil {
		c := banners.AdCategory(*payload.Category)
		patch.Category = &c
	}

	app.updateBanner(w, r, banners.KindAdvertisement, patch)
}

// deleteAdvertisementHandler godoc
//
//	@Summary		Delete an advertisement (Admin)
//	@Tags			admin-advertisements
//	@Param			bannerID	path	int	true	"Advertisement ID"
//	@Success		204
//	@Failure		400	{object}	error
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/advertisements/{bannerID} [delete]
func (app *application) deleteAdvertisementHandler(w http.ResponseWriter, r *http.Request) {
	app.deleteBanner(w, r, banners.KindAdvertisement)
}
