// Package email sends invite and share notifications over SMTP. Sending is
// best-effort: callers log failures and report an email_sent flag instead of
// failing the request.
package email

import (
	"fmt"
	"net/smtp"

	"github.com/traveldiary/backend/internal/config"
)

// Invite carries everything the collaboration-invite mail template needs.
type Invite struct {
	ToEmail      string
	InviterName  string
	InviterEmail string
	TripTitle    string
	Destination  string
	StartDate    string
	EndDate      string
	Role         string
	Message      string
	AcceptURL    string
	DeclineURL   string
}

// ShareNotification carries the share-link notification mail fields.
type ShareNotification struct {
	ToEmail     string
	TripTitle   string
	Destination string
	ShareURL    string
	Protected   bool
}

// Sender delivers notification emails. Implementations must be safe for
// concurrent use.
type Sender interface {
	SendInvite(inv Invite) error
	SendShareNotification(n ShareNotification) error
}

// SMTPSender sends mail through a plain-auth SMTP relay.
type SMTPSender struct {
	config *config.EmailConfig
}

// NewSMTPSender creates a sender from the email configuration.
func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	return &SMTPSender{config: cfg}
}

// SendInvite sends the collaboration invitation email with accept and
// decline links.
func (s *SMTPSender) SendInvite(inv Invite) error {
	subject := fmt.Sprintf("You're invited to collaborate on %s", inv.TripTitle)

	personal := ""
	if inv.Message != "" {
		personal = fmt.Sprintf("\nMessage from %s: %q\n", inv.InviterName, inv.Message)
	}

	body := fmt.Sprintf(`Hello,

%s (%s) has invited you to collaborate on their trip:

  %s — %s
  %s to %s
  Your role: %s
%s
To accept this invitation, visit: %s
To decline this invitation, visit: %s

This invitation will expire in 7 days. If you have any questions, please
contact %s.

Happy travels,
Travel Diary
`, inv.InviterName, inv.InviterEmail, inv.TripTitle, inv.Destination,
		inv.StartDate, inv.EndDate, inv.Role, personal,
		inv.AcceptURL, inv.DeclineURL, inv.InviterEmail)

	return s.sendEmail(inv.ToEmail, subject, body)
}

// SendShareNotification tells the link creator their trip is now shared.
func (s *SMTPSender) SendShareNotification(n ShareNotification) error {
	subject := fmt.Sprintf("Your trip %s has been shared", n.TripTitle)

	protection := "Anyone with the link can view this trip."
	if n.Protected {
		protection = "The link is password protected."
	}

	body := fmt.Sprintf(`Hello,

Your trip %s (%s) has been shared and is now accessible via the link below:

  %s

%s

Happy travels,
Travel Diary
`, n.TripTitle, n.Destination, n.ShareURL, protection)

	return s.sendEmail(n.ToEmail, subject, body)
}

// sendEmail sends an email using SMTP
func (s *SMTPSender) sendEmail(to, subject, body string) error {
	if s.config.SMTPUsername == "" || s.config.SMTPPassword == "" {
		return fmt.Errorf("email credentials not configured")
	}

	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	fromEmail := s.config.FromEmail
	if fromEmail == "" {
		fromEmail = s.config.SMTPUsername
	}

	message := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"\r\n"+
			"%s\r\n",
		s.config.FromName, fromEmail, to, subject, body))

	addr := s.config.SMTPHost + ":" + s.config.SMTPPort
	if err := smtp.SendMail(addr, auth, fromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NoopSender discards all mail. Used in tests and when SMTP is unconfigured.
type NoopSender struct{}

func (NoopSender) SendInvite(Invite) error                       { return nil }
func (NoopSender) SendShareNotification(ShareNotification) error { return nil }
