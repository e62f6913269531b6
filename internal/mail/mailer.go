package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/series-locker/backend/internal/config"
	"github.com/series-locker/backend/internal/models"
)

// SMTPMailer sends transactional mail over plain SMTP.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
	}
}

func (m *SMTPMailer) send(to, subject, body string) error {
	if m.host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n\r\n" +
		body + "\r\n")

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

// firstName mirrors the greeting the app has always used.
func firstName(user *models.User) string {
	if i := strings.IndexByte(user.Username, ' '); i > 0 {
		return user.Username[:i]
	}
	return user.Username
}

// SendWelcome greets a new account after signup.
func (m *SMTPMailer) SendWelcome(user *models.User, url string) error {
	body := fmt.Sprintf("Hi %s,\n\n"+
		"Welcome to Series Locker! Your account is ready.\n\n"+
		"Start adding the series you are watching here: %s\n\n"+
		"Best regards,\nSeries Locker",
		firstName(user), url)
	return m.send(user.Email, "Welcome to the Series Locker App", body)
}

// SendPasswordReset mails the raw reset token embedded in a URL. The link is
// only valid for ten minutes.
func (m *SMTPMailer) SendPasswordReset(user *models.User, resetURL string) error {
	body := fmt.Sprintf("Hi %s,\n\n"+
		"We received a request to reset the password for your account. "+
		"Click the link below to reset it:\n\n%s\n\n"+
		"If you didn't request a password reset, you can safely ignore this email. "+
		"This link will expire in 10 minutes.\n\n"+
		"For security purposes, please do not share this link with anyone.\n\n"+
		"Best regards,\nSeries Locker",
		firstName(user), resetURL)
	return m.send(user.Email, "Reset Your Password", body)
}
