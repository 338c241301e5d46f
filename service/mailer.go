package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/sirupsen/logrus"
)

// Mailer delivers account emails. Delivery is best-effort: callers log
// failures and never fail the request because of them.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error
}

// LogMailer writes the email it would send to the log. It is the default
// when no SMTP relay is configured.
type LogMailer struct {
	frontendURL string
}

func NewLogMailer(frontendURL string) *LogMailer {
	return &LogMailer{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	m.log(to, "Verify your email - Life Curriculum Assistant", m.link("/verify-email", token))
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	m.log(to, "Reset your password - Life Curriculum Assistant", m.link("/reset-password", token))
	return nil
}

func (m *LogMailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func (m *LogMailer) log(to, subject, link string) {
	logger.Log.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"link":    link,
	}).Warn("SMTP not configured, email not sent")
}
