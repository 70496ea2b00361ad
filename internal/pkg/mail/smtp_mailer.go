package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/ManuelReschke/PulseFox/internal/pkg/env"
)

// SMTPMailer delivers verification and password reset secrets by email.
// Delivery is fire-and-forget for the credential engine: a send failure is
// logged, never rolled back into token issuance.
type SMTPMailer struct{}

// NewSMTPMailer creates the default mailer.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{}
}

// SendVerificationEmail mails the one-time verification link.
func (m *SMTPMailer) SendVerificationEmail(to, secret string) error {
	link := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", appURL(), secret)
	body := fmt.Sprintf(
		"<p>Welcome to PulseFox!</p>"+
			"<p>Please confirm your email address within 24 hours:</p>"+
			"<p><a href=\"%s\">Verify email address</a></p>", link)
	return SendMail(to, "PulseFox - Verify your email address", body)
}

// SendPasswordResetEmail mails the one-time password reset link.
func (m *SMTPMailer) SendPasswordResetEmail(to, secret string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", appURL(), secret)
	body := fmt.Sprintf(
		"<p>A password reset was requested for your PulseFox account.</p>"+
			"<p>The link below is valid for one hour:</p>"+
			"<p><a href=\"%s\">Reset password</a></p>"+
			"<p>If you did not request this, you can ignore this email.</p>", link)
	return SendMail(to, "PulseFox - Reset your password", body)
}

func appURL() string {
	return env.GetEnv("APP_URL", "http://localhost:4000")
}

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}
