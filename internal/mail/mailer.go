package mail

import (
	"fmt"
	"net/smtp"

	"busbooking/internal/utils"
)

// Mailer sends transactional mail. The SMTP implementation is tiny on
// purpose; handlers only ever send the password-reset message.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
}

type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func (m SMTPMailer) SendPasswordReset(to, resetURL string) error {
	body := fmt.Sprintf("You requested a password reset.\r\n\r\n"+
		"Open this link to choose a new password:\r\n%s\r\n\r\n"+
		"The link expires in 1 hour. If you did not request this, ignore this email.\r\n", resetURL)

	msg := []byte("From: " + m.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: Password Reset Request\r\n" +
		"\r\n" + body)

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, msg); err != nil {
		return err
	}
	utils.LogEvent("", "mail", "password_reset_sent", "to="+to)
	return nil
}

// NopMailer is used when SMTP is not configured; the reset link is only
// logged so local development still works end to end.
type NopMailer struct{}

func (NopMailer) SendPasswordReset(to, resetURL string) error {
	utils.LogEvent("", "mail", "password_reset_skipped", "smtp not configured, to="+to)
	return nil
}
