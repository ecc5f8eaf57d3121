package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/config"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Enabled reports whether alert e-mails are switched on
func (s *Sender) Enabled() bool {
	return s.cfg.AlertEmailsEnabled && s.cfg.SMTPHost != ""
}

// SendAlerts mails a digest of alerts to the user
func (s *Sender) SendAlerts(to, name string, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if len(alerts) == 1 {
		e.Subject = alerts[0].Title
	} else {
		e.Subject = fmt.Sprintf("%d new alerts on your dashboard", len(alerts))
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", name)
	for _, a := range alerts {
		fmt.Fprintf(&body, "[%s] %s\n%s\n\n", strings.ToUpper(string(a.Severity)), a.Title, a.Message)
	}
	body.WriteString("Review them on your financial dashboard.\n")
	e.Text = []byte(body.String())

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send alert email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
