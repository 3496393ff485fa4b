package main

import (
	"context"
	"net/http"
	"time"

	"medimart/internal/domain/banners"
)

// createPromotionModalPayload accepts is_visible for client compatibility;
// new modals are always stored hidden.
type createPromotionModalPayload struct {
	Title     string  `json:"title" validate:"required,max=255"`
	ImageURL  string  `json:"image_url" validate:"required,url,max=2048"`
	Hyperlink *string `json:"hyperlink" validate:"omitempty,url,max=2048"`
	IsVisible *bool   `json:"is_visible"`
}

type updatePromotionModalPayload struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=255"`
	ImageURL  *string `json:"image_url" validate:"omitempty,url,max=2048"`
	Hyperlink *string `json:"hyperlink" validate:"omitempty,url,max=2048"`
	IsVisible *bool   `json:"is_visible"`
}

// getPromotionModalHandler godoc
//
//	@Summary		Current promotion modal
//	@Description	Returns the visible promotion modal, or null when none is visible.
//	@Tags			promotion-modals
//	@Produce		json
//	@Success		200	{object}	banners.Banner
//	@Failure		500	{object}	error
//	@Router			/promotion-modal [get]
func (app *application) getPromotionModalHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	modal, err := app.store.Banners.CurrentVisible(ctx, banners.KindPromotionModal)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, modal); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listPromotionModalsHandler godoc
//
//	@Summary		List promotion modals (Admin)
//	@Tags			admin-promotion-modals
//	@Produce		json
//	@Success		200	{array}		banners.Banner
//	@Failure		401	{object}	error
//	@Failure		403	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/promotion-modals [get]
func (app *application) listPromotionModalsHandler(w http.ResponseWriter, r *http.Request) {
	app.listBanners(w, r, banners.KindPromotionModal, false)
}

// createPromotionModalHandler godoc
//
//	@Summary		Create a promotion modal (Admin)
//	@Description	Creates a promotion modal. It always starts hidden; show it with an update.
//	@Tags			admin-promotion-modals
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		createPromotionModalPayload	true	"Promotion modal"
//	@Success		201		{object}	banners.Banner
//	@Failure		400		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/promotion-modals [post]
func (app *application) createPromotionModalHandler(w http.ResponseWriter, r *http.Request) {
	var payload createPromotionModalPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.createBanner(w, r, banners.NewBanner{
		Kind:      banners.KindPromotionModal,
		Title:     payload.Title,
		ImageURL:  payload.ImageURL,
		Hyperlink: payload.Hyperlink,
	})
}

// updatePromotionModalHandler godoc
//
//	@Summary		Update a promotion modal (Admin)
//	@Description	Partially updates a promotion modal. Showing it fails while another modal is visible; hiding always succeeds.
//	@Tags			admin-promotion-modals
//	@Accept			json
//	@Produce		json
//	@Param			bannerID	path		int								true	"Promotion modal ID"
//	@Param			payload		body		updatePromotionModalPayload		true	"Fields to change"
//	@Success		200			{object}	banners.Banner
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Another promotion modal is already visible"
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/promotion-modals/{bannerID} [put]
func (app *application) updatePromotionModalHandler(w http.ResponseWriter, r *http.Request) {
	var payload updatePromotionModalPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.updateBanner(w, r, banners.KindPromotionModal, banners.Patch{
		Title:     payload.Title,
		ImageURL:  payload.ImageURL,
		Hyperlink: payload.Hyperlink,
		IsVisible: payload.IsVisible,
	})
}

// deletePromotionModalHandler godoc
//
//	@Summary		Delete a promotion modal (Admin)
//	@Tags			admin-promotion-modals
//	@Param			bannerID	path	int	true	"Promotion modal ID"
//	@Success		204
//	@Failure		400	{object}	error
//	@Failure		404	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/promotion-modals/{bannerID} [delete]
func (app *application) deletePromotionModalHandler(w http.ResponseWriter, r *http.Request) {
	app.deleteBanner(w, r, banners.KindPromotionModal)
}
