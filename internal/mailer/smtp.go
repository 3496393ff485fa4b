package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gopkg.in/mail.v2"
)

// dialer is the part of *mail.Dialer the client needs.
type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type SMTPClient struct {
	fromEmail string
	dialer    dialer
	backoff   time.Duration
}

func NewSMTPClient(host string, port int, username, password, fromEmail string) (*SMTPClient, error) {
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if fromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 10 * time.Second
	return &SMTPClient{fromEmail: fromEmail, dialer: d, backoff: time.Second}, nil
}

func (c *SMTPClient) Send(templateFile, username, email string, data any) error {
	if email == "" {
		return ErrMissingRecipient
	}

	subject, body, err := Render(templateFile, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", templateFile, err)
	}

	message := mail.NewMessage()
	message.SetAddressHeader("From", c.fromEmail, FromName)
	message.SetAddressHeader("To", email, username)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body)

	backoff := retry.WithMaxRetries(maxRetires-1, retry.NewExponential(c.backoff))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := c.dialer.DialAndSend(message); err != nil {
			return retry.RetryableError(fmt.Errorf("send email to %s: %w", email, err))
		}
		return nil
	})
}
