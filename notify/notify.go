package notify

/*
Human notification collaborator. Alerts go out when a deal closes or the agent needs
help; the caller guarantees at most one call per conversation phase transition, and a
failed send is logged without blocking the transition (the conversation's own state is
authoritative).
*/

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/rs/zerolog/log"

	"marketbot/config"
)

// Kind discriminates the two alert types.
type Kind string

const (
	KindDealClosed Kind = "deal_closed"
	KindHelpNeeded Kind = "help_needed"
)

// Payload is the structured context handed to the human operator.
type Payload struct {
	ConversationID  string `json:"conversation_id"`
	ConversationURL string `json:"conversation_url"`
	ListingURL      string `json:"listing_url"`
	Product         string `json:"product"`
	SellerName      string `json:"seller_name"`
	Price           int    `json:"price"`
	LastMessage     string `json:"last_message"`
	Issue           string `json:"issue,omitempty"`
}

// Notifier delivers alerts to a human.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, p Payload) error
}

// FromSettings picks the email sender when SMTP is configured, otherwise a
// log-only notifier so alerts still surface in the console.
func FromSettings(s *config.Settings) Notifier {
	if s.SMTP.Host != "" && s.SMTP.From != "" && s.NotificationEmail != "" {
		return &EmailNotifier{SMTP: s.SMTP, To: s.NotificationEmail}
	}
	log.Warn().Msg("SMTP not configured, notifications will only be logged")
	return &LogNotifier{}
}

// EmailNotifier sends alerts over an SMTP relay.
type EmailNotifier struct {
	SMTP config.SMTP
	To   string
}

func (n *EmailNotifier) Notify(ctx context.Context, kind Kind, p Payload) error {
	subject, body := formatMessage(kind, p)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.SMTP.From, n.To, subject, body)
	addr := fmt.Sprintf("%s:%d", n.SMTP.Host, n.SMTP.Port)

	var auth smtp.Auth
	if n.SMTP.Username != "" {
		auth = smtp.PlainAuth("", n.SMTP.Username, n.SMTP.Password, n.SMTP.Host)
	}

	//smtp.SendMail has no context support; run it on the side so a stalled
	//relay cannot hold up the conversation loop past the deadline
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, n.SMTP.From, []string{n.To}, []byte(msg))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending %s notification: %w", kind, err)
		}
		log.Info().Str("kind", string(kind)).Str("to", n.To).Msg("Notification email sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending %s notification: %w", kind, ctx.Err())
	}
}

// LogNotifier writes the alert to the log instead of delivering it.
type LogNotifier struct{}

func (n *LogNotifier) Notify(ctx context.Context, kind Kind, p Payload) error {
	subject, body := formatMessage(kind, p)
	log.Info().
		Str("kind", string(kind)).
		Str("subject", subject).
		Str("conversation", p.ConversationID).
		Msg("Would have sent notification:\n" + body)
	return nil
}

func formatMessage(kind Kind, p Payload) (subject, body string) {
	now := time.Now().Format("3:04 PM on 01/02/2006")
	switch kind {
	case KindDealClosed:
		subject = fmt.Sprintf("DEAL CLOSED - %s $%d", p.Product, p.Price)
		body = fmt.Sprintf(`Deal Successfully Closed!

Item: %s - $%d
Seller: %s
Link: %s
Time: %s

Please verify all details before the meetup and bring exact cash amount.`,
			p.Product, p.Price, orUnknown(p.SellerName), p.ConversationURL, now)
	case KindHelpNeeded:
		subject = fmt.Sprintf("AGENT HELP NEEDED - %s ($%d)", orUnknown(p.SellerName), p.Price)
		body = fmt.Sprintf(`Agent Needs Human Intervention

Item: %s - $%d
Seller: %s
Issue: %s
Time: %s

Last message from seller:
%q

Link to conversation: %s

Please review the conversation and take appropriate action. The agent was unable to handle this situation automatically.`,
			p.Product, p.Price, orUnknown(p.SellerName), p.Issue, now, p.LastMessage, p.ConversationURL)
	}
	return subject, body
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
