package main

import (
	"fmt"

	"medimart/internal/domain/accounts"
	"medimart/internal/mailer"
)

// runInBackground runs fn on its own goroutine. Shutdown waits for it and a
// panic is logged instead of taking the process down.
func (app *application) runInBackground(task string, fn func() error) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				app.logger.Errorw("background task panicked", "task", task, "panic", fmt.Sprint(rec))
			}
		}()

		if err := fn(); err != nil {
			app.logger.Errorw("background task failed", "task", task, "error", err)
			return
		}
		app.logger.Infow("background task done", "task", task)
	}()
}

func (app *application) sendWelcomeEmail(account *accounts.Account) {
	if app.mailer == nil {
		return
	}

	name, email := account.Name, account.Email
	vars := struct {
		Name string
		Role accounts.Role
	}{
		Name: name,
		Role: account.Role,
	}

	app.runInBackground("welcome email", func() error {
		return app.mailer.Send(mailer.WelcomeTemplate, name, email, vars)
	})
}

// sendStatusEmail notifies the account owner of a status change. Delivery is
// best effort and never affects the change itself.
func (app *application) sendStatusEmail(account *accounts.Account, previous accounts.Status) {
	if app.mailer == nil {
		return
	}

	name, email := account.Name, account.Email
	vars := struct {
		Name           string
		Status         accounts.Status
		PreviousStatus accounts.Status
	}{
		Name:           name,
		Status:         account.Status,
		PreviousStatus: previous,
	}

	app.runInBackground("account status email", func() error {
		return app.mailer.Send(mailer.AccountStatusTemplate, name, email, vars)
	})
}
