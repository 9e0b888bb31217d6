package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	cfgPkg "github.com/coffeeshop/account-service/app/config"
)

// Mailer sends confirmation emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	tmpl   *template.Template
}

const confirmationTemplate = `<h2>Confirm your email</h2>
<p>Your confirmation code is <strong>{{.Code}}</strong>.</p>
<p>The code expires in 2 minutes. If you did not create an account, you can ignore this email.</p>`

// NewMailer builds a mailer from SMTP_* environment variables.
func NewMailer() (*Mailer, error) {
	host := cfgPkg.GetString("SMTP_HOST", "localhost")
	port := cfgPkg.GetInt("SMTP_PORT", 587)
	user := cfgPkg.GetString("SMTP_USER", "")
	password := cfgPkg.GetString("SMTP_PASSWORD", "")
	from := cfgPkg.GetString("SMTP_FROM", "no-reply@localhost")

	tmpl, err := template.New("confirmation").Parse(confirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation template: %w", err)
	}

	return &Mailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		tmpl:   tmpl,
	}, nil
}

// renderBody renders the confirmation email body for a code.
func (m *Mailer) renderBody(code int) (string, error) {
	var buf bytes.Buffer
	if err := m.tmpl.Execute(&buf, struct{ Code int }{Code: code}); err != nil {
		return "", fmt.Errorf("render confirmation body: %w", err)
	}
	return buf.String(), nil
}

// SendConfirmationCode delivers a confirmation code to the given address.
func (m *Mailer) SendConfirmationCode(email string, code int) error {
	body, err := m.renderBody(code)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Confirm your email")
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}
