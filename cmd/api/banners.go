package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"medimart/internal/domain/banners"
)

func (app *application) bannerError(w http.ResponseWriter, r *http.Request, kind banners.Kind, err error) {
	switch {
	case errors.Is(err, banners.ErrNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, banners.ErrAnotherVisible):
		app.metrics.visibilityConflict(string(kind))
		app.conflictResponse(w, r, err)
	case errors.Is(err, banners.ErrInvalidCategory), errors.Is(err, banners.ErrInvalidKind):
		app.badRequestResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

func (app *application) listBanners(w http.ResponseWriter, r *http.Request, kind banners.Kind, visibleOnly bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		list []banners.Banner
		err  error
	)
	if visibleOnly {
		list, err = app.store.Banners.ListVisible(ctx, kind)
	} else {
		list, err = app.store.Banners.List(ctx, kind)
	}
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) createBanner(w http.ResponseWriter, r *http.Request, in banners.NewBanner) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	banner, err := app.store.Banners.Create(ctx, in)
	if err != nil {
		app.bannerError(w, r, in.Kind, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, banner); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) updateBanner(w http.ResponseWriter, r *http.Request, kind banners.Kind, patch banners.Patch) {
	id, err := readIDParam(r, "bannerID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	banner, err := app.store.Banners.Update(ctx, kind, id, patch)
	if err != nil {
		app.bannerError(w, r, kind, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, banner); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteBanner(w http.ResponseWriter, r *http.Request, kind banners.Kind) {
	id, err := readIDParam(r, "bannerID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Banners.Delete(ctx, kind, id); err != nil {
		app.bannerError(w, r, kind, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
