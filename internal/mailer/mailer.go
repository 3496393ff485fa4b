package mailer

import (
	"bytes"
	"embed"
	"errors"
	"text/template"
)

const (
	FromName              = "MediMart"
	maxRetires            = 3
	AccountStatusTemplate = "account_status.tmpl"
	WelcomeTemplate       = "welcome.tmpl"
)

//go:embed "templates"
var FS embed.FS

var ErrMissingRecipient = errors.New("mailer: recipient email is empty")

type Client interface {
	Send(templateFile, username, email string, data any) error
}

// Render executes the "subject" and "body" blocks of an embedded template.
func Render(templateFile string, data any) (subject, body string, err error) {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return "", "", err
	}

	s := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(s, "subject", data); err != nil {
		return "", "", err
	}

	b := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(b, "body", data); err != nil {
		return "", "", err
	}

	return s.String(), b.String(), nil
}
